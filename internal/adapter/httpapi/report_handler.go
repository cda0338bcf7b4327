package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/fundledger/internal/domain"
	"github.com/simaogato/fundledger/internal/logger"
)

const dateLayout = "2006-01-02"

// Exporter renders ledger records between two dates
type Exporter interface {
	ExportToCsv(ctx context.Context, w io.Writer, start, end time.Time) error
	ExportToXlsx(ctx context.Context, w io.Writer, start, end time.Time) error
}

// BalanceReader answers balance questions
type BalanceReader interface {
	GetBalanceByStatus(ctx context.Context, currency string) (map[domain.FundStatus]decimal.Decimal, error)
	GetTotalBalance(ctx context.Context, currency string) (decimal.Decimal, error)
}

// ReportHandler serves export downloads and balances
type ReportHandler struct {
	exporter Exporter
	balances BalanceReader
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReportHandler creates a new ReportHandler instance
func NewReportHandler(exporter Exporter, balances BalanceReader, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		exporter: exporter,
		balances: balances,
		logger:   log,
		now:      time.Now,
	}
}

// ExportCSV streams the records dated in [from, to] as CSV
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "text/csv; charset=utf-8", "csv", h.exporter.ExportToCsv)
}

// ExportXLSX streams the records dated in [from, to] as a workbook
func (h *ReportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", h.exporter.ExportToXlsx)
}

// Balance returns the per-status and total balance, optionally for one currency
func (h *ReportHandler) Balance(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")

	byStatus, err := h.balances.GetBalanceByStatus(r.Context(), currency)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	total, err := h.balances.GetTotalBalance(r.Context(), currency)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	statuses := make(map[string]string, len(domain.FundStatuses))
	for _, st := range domain.FundStatuses {
		statuses[st.String()] = byStatus[st].String()
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"currency":  currency,
		"total":     total.String(),
		"by_status": statuses,
	})
}

type exportFunc func(ctx context.Context, w io.Writer, start, end time.Time) error

func (h *ReportHandler) export(w http.ResponseWriter, r *http.Request, contentType, ext string, run exportFunc) {
	start, end, err := h.dateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Buffer the file so a failure can still be reported with a proper status
	var buf bytes.Buffer
	if err := run(r.Context(), &buf, start, end); err != nil {
		h.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("records_%s_%s.%s", start.Format(dateLayout), end.Format(dateLayout), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// dateRange reads from/to (yyyy-MM-dd, both inclusive). A missing from means the beginning of
// time and a missing to means today.
func (h *ReportHandler) dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	start := time.Unix(0, 0).UTC()
	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from format. Use YYYY-MM-DD")
		}
		start = parsed
	}

	end := h.now().UTC()
	if v := q.Get("to"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to format. Use YYYY-MM-DD")
		}
		end = parsed
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Nanosecond)

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must not be after to")
	}
	return start, end, nil
}

func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), h.logger)
	log.Error().Err(err).Msg("report request failed")
	respondWithError(w, http.StatusInternalServerError, "internal error")
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
