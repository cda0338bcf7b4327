package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/simaogato/fundledger/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	// NotAvailable stands in for a relation the record does not have
	NotAvailable = "N/A"
	dateLayout   = "2006-01-02"
	sheetName    = "Records"
)

// Header is the first row of every export
var Header = []string{
	"ID", "Date", "Type", "Category", "Description", "Amount",
	"Currency", "Fund Status", "Project", "User", "Contact",
}

// Service serializes ledger records for download
type Service struct {
	Records   domain.RecordRepository
	Directory domain.EntityDirectory
}

// NewService creates a new export Service instance
func NewService(records domain.RecordRepository, directory domain.EntityDirectory) *Service {
	return &Service{
		Records:   records,
		Directory: directory,
	}
}

// ExportToCsv writes the records dated between start and end (inclusive) as CSV.
// Fields containing a comma, a quote or a newline are quoted with inner quotes doubled.
func (s *Service) ExportToCsv(ctx context.Context, w io.Writer, start, end time.Time) error {
	rows, err := s.Rows(ctx, start, end)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// ExportToXlsx writes the same rows as ExportToCsv to a single-sheet workbook
func (s *Service) ExportToXlsx(ctx context.Context, w io.Writer, start, end time.Time) error {
	rows, err := s.Rows(ctx, start, end)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, row := range append([][]string{Header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Rows builds the export rows (without the header) for the records dated between start and end.
// Names are resolved once per id.
func (s *Service) Rows(ctx context.Context, start, end time.Time) ([][]string, error) {
	records, err := s.Records.Query(ctx, domain.RecordFilter{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to query records for export: %w", err)
	}

	names := newNameCache(s.Directory)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		project, err := names.project(ctx, r.ProjectID)
		if err != nil {
			return nil, err
		}
		user, err := names.user(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		contact, err := names.contact(ctx, r.ContactID)
		if err != nil {
			return nil, err
		}

		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.TransactionDate.UTC().Format(dateLayout),
			string(r.Type),
			r.Category,
			r.Description,
			r.Amount.String(),
			r.Currency,
			r.FundStatus.String(),
			project,
			user,
			contact,
		})
	}
	return rows, nil
}

type lookupFunc func(ctx context.Context, id int64) (string, bool, error)

type nameCache struct {
	dir      domain.EntityDirectory
	projects map[int64]string
	users    map[int64]string
	contacts map[int64]string
}

func newNameCache(dir domain.EntityDirectory) *nameCache {
	return &nameCache{
		dir:      dir,
		projects: map[int64]string{},
		users:    map[int64]string{},
		contacts: map[int64]string{},
	}
}

func (c *nameCache) project(ctx context.Context, id *int64) (string, error) {
	return resolve(ctx, c.projects, c.dir.ProjectName, id)
}

func (c *nameCache) user(ctx context.Context, id *int64) (string, error) {
	return resolve(ctx, c.users, c.dir.UserName, id)
}

func (c *nameCache) contact(ctx context.Context, id *int64) (string, error) {
	return resolve(ctx, c.contacts, c.dir.ContactHandle, id)
}

func resolve(ctx context.Context, memo map[int64]string, lookup lookupFunc, id *int64) (string, error) {
	if id == nil {
		return NotAvailable, nil
	}
	if name, ok := memo[*id]; ok {
		return name, nil
	}

	name, ok, err := lookup(ctx, *id)
	if err != nil {
		return "", fmt.Errorf("failed to resolve name for %d: %w", *id, err)
	}
	if !ok || name == "" {
		name = NotAvailable
	}
	memo[*id] = name
	return name, nil
}
