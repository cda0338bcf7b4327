package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/fundledger/internal/domain"
	"github.com/simaogato/fundledger/internal/usecase/balance"
	"github.com/simaogato/fundledger/internal/usecase/commission"
	"github.com/simaogato/fundledger/internal/usecase/fundstatus"
	"github.com/simaogato/fundledger/internal/usecase/ledger"
)

// Server implements the LedgerService gRPC server
type Server struct {
	LedgerService     *ledger.Service
	StatusService     *fundstatus.Service
	BalanceService    *balance.Service
	CommissionService *commission.Service
	Logger            zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(
	ledgerService *ledger.Service,
	statusService *fundstatus.Service,
	balanceService *balance.Service,
	commissionService *commission.Service,
	logger zerolog.Logger,
) *Server {
	return &Server{
		LedgerService:     ledgerService,
		StatusService:     statusService,
		BalanceService:    balanceService,
		CommissionService: commissionService,
		Logger:            logger.With().Str("component", "grpc").Logger(),
	}
}

// CreateRecord handles the CreateRecord RPC
func (s *Server) CreateRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	recordType, err := domain.ParseRecordType(f.str("type"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	input := ledger.CreateRecordInput{
		Type:             recordType,
		Category:         f.str("category"),
		Currency:         f.str("currency"),
		Source:           f.str("source"),
		Description:      f.str("description"),
		CommissionPaidBy: f.optStr("commission_paid_by"),
		TransactionHash:  f.optStr("transaction_hash"),
	}

	if input.Amount, err = f.reqDecimal("amount"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if input.Commission, err = f.optDecimal("commission"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if input.TransactionDate, err = f.optTime("transaction_date"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if input.IsConfirmed, err = f.optBool("is_confirmed"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if f.present("fund_status") {
		if input.FundStatus, err = domain.ParseFundStatus(f.str("fund_status")); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}
	if err := parseRefs(f, &input.UserID, &input.ProjectID, &input.ContactID, &input.ActorID); err != nil {
		return nil, err
	}

	record, err := s.LedgerService.CreateFinancialRecord(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(recordToMap(record, true))
}

// CreateCommissionRecord handles the CreateCommissionRecord RPC
func (s *Server) CreateCommissionRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	input := ledger.CommissionRecordInput{
		Currency:    f.str("currency"),
		Bank:        f.str("bank"),
		Description: f.str("description"),
		PaidBy:      f.optStr("paid_by"),
	}

	var err error
	if input.Amount, err = f.reqDecimal("amount"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if input.TransactionDate, err = f.optTime("transaction_date"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if err := parseRefs(f, &input.UserID, &input.ProjectID, &input.ContactID, &input.ActorID); err != nil {
		return nil, err
	}

	record, err := s.LedgerService.CreateCommissionRecord(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(recordToMap(record, true))
}

// GetRecord handles the GetRecord RPC
func (s *Server) GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := fieldsOf(req).reqInt64("id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	record, err := s.LedgerService.GetRecord(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(recordToMap(record, true))
}

// ListRecords handles the ListRecords RPC.
// The first filter present wins, in the order type, category, contact_id, project_id, user_id;
// without any of them the from/to date range is used.
func (s *Server) ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	limit, err := f.limit()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	contactID, err := f.optInt64("contact_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	projectID, err := f.optInt64("project_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	userID, err := f.optInt64("user_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	var records []*domain.FinancialRecord
	switch {
	case f.present("type"):
		recordType, perr := domain.ParseRecordType(f.str("type"))
		if perr != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", perr)
		}
		records, err = s.LedgerService.GetRecordsByType(ctx, recordType, limit)
	case f.present("category"):
		records, err = s.LedgerService.GetRecordsByCategory(ctx, f.str("category"), limit)
	case contactID != nil:
		records, err = s.LedgerService.GetRecordsByContact(ctx, *contactID, limit)
	case projectID != nil:
		records, err = s.LedgerService.GetRecordsByProject(ctx, *projectID, limit)
	case userID != nil:
		records, err = s.LedgerService.GetRecordsByUser(ctx, *userID, limit)
	default:
		from, terr := f.optTime("from")
		if terr != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", terr)
		}
		to, terr := f.optTime("to")
		if terr != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", terr)
		}
		records, err = s.LedgerService.GetRecordsByDateRange(ctx, from, to, limit)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"records": recordsToList(records),
	})
}

// UpdateRecord handles the UpdateRecord RPC.
// Only the fields present in the request are changed; "version" makes the write conditional.
func (s *Server) UpdateRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	id, err := f.reqInt64("id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	actorID, err := f.optInt64("actor_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	record, err := s.LedgerService.GetRecord(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if err := applyUpdate(f, record); err != nil {
		return nil, err
	}

	if err := s.LedgerService.UpdateRecord(ctx, record, actorID); err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(recordToMap(record, false))
}

// DeleteRecord handles the DeleteRecord RPC
func (s *Server) DeleteRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := fieldsOf(req).reqInt64("id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	if err := s.LedgerService.DeleteRecord(ctx, id); err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{"deleted": true})
}

// TransferStatus handles the TransferStatus RPC
func (s *Server) TransferStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	id, err := f.reqInt64("id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	newStatus, err := domain.ParseFundStatus(f.str("status"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	actorID, err := f.optInt64("actor_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	entry, err := s.StatusService.TransferStatus(ctx, id, newStatus, f.str("reason"), actorID)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(auditToMap(*entry))
}

// SetFundStatus handles the SetFundStatus RPC
func (s *Server) SetFundStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	id, err := f.reqInt64("id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	newStatus, err := domain.ParseFundStatus(f.str("status"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	if err := s.StatusService.SetFundStatus(ctx, id, newStatus); err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{"fund_status": newStatus.String()})
}

// GetBalance handles the GetBalance RPC
func (s *Server) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	currency := fieldsOf(req).str("currency")

	byStatus, err := s.BalanceService.GetBalanceByStatus(ctx, currency)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := s.BalanceService.GetTotalBalance(ctx, currency)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"total":     total.String(),
		"by_status": statusTotals(byStatus),
	})
}

// GetFinanceStatistics handles the GetFinanceStatistics RPC
func (s *Server) GetFinanceStatistics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	start, err := f.optTime("from")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	end, err := f.optTime("to")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	stats, err := s.BalanceService.GetFinanceStatistics(ctx, start, end)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"period_start":           stats.PeriodStart.Format(time.RFC3339),
		"period_end":             stats.PeriodEnd.Format(time.RFC3339),
		"total_income":           stats.TotalIncome.String(),
		"total_expenses":         stats.TotalExpenses.String(),
		"balance":                stats.Balance.String(),
		"working_capital":        stats.WorkingCapital.String(),
		"reserved_funds":         stats.ReservedFunds.String(),
		"balance_by_status":      statusTotals(stats.BalanceByStatus),
		"income_by_category":     categoryTotals(stats.IncomeByCategory),
		"expenses_by_category":   categoryTotals(stats.ExpensesByCategory),
		"current_month_income":   stats.CurrentMonthIncome.String(),
		"current_month_expenses": stats.CurrentMonthExpenses.String(),
		"monthly_trend":          trendPoints(stats.MonthlyIncomeTrend),
	})
}

// CalculateCommission handles the CalculateCommission RPC
func (s *Server) CalculateCommission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	amount, err := f.reqDecimal("amount")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	result, err := s.CommissionService.CalculateCommission(ctx, f.str("bank"), f.str("category"), amount)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{"commission": result.StringFixed(2)})
}

// GetAdvice handles the GetAdvice RPC
func (s *Server) GetAdvice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	amount, err := f.reqDecimal("amount")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	advice, err := s.CommissionService.GetAdviceForTransaction(ctx, f.str("bank"), f.str("category"), amount)
	if err != nil {
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]interface{}{"advice": advice})
}

// parseRefs reads user_id, project_id, contact_id and actor_id
func parseRefs(f fields, user, project, contact, actor **int64) error {
	targets := []struct {
		key string
		dst **int64
	}{
		{"user_id", user},
		{"project_id", project},
		{"contact_id", contact},
		{"actor_id", actor},
	}

	for _, t := range targets {
		v, err := f.optInt64(t.key)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "%v", err)
		}
		*t.dst = v
	}
	return nil
}

// applyUpdate overlays the present request fields onto record
func applyUpdate(f fields, record *domain.FinancialRecord) error {
	var err error

	if f.present("category") {
		record.Category = f.str("category")
	}
	if f.present("currency") {
		record.Currency = f.str("currency")
	}
	if f.present("source") {
		record.Source = f.str("source")
	}
	if f.present("description") {
		record.Description = f.str("description")
	}
	if f.present("commission_paid_by") {
		record.CommissionPaidBy = f.optStr("commission_paid_by")
	}
	if f.present("transaction_hash") {
		record.TransactionHash = f.optStr("transaction_hash")
	}
	if f.present("amount") {
		if record.Amount, err = f.reqDecimal("amount"); err != nil {
			return status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}
	if f.present("commission") {
		if record.Commission, err = f.optDecimal("commission"); err != nil {
			return status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}
	if f.present("transaction_date") {
		date, terr := f.optTime("transaction_date")
		if terr != nil {
			return status.Errorf(codes.InvalidArgument, "%v", terr)
		}
		record.TransactionDate = date.UTC()
	}
	if f.present("fund_status") {
		if record.FundStatus, err = domain.ParseFundStatus(f.str("fund_status")); err != nil {
			return status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}
	if f.present("is_confirmed") {
		confirmed, berr := f.optBool("is_confirmed")
		if berr != nil {
			return status.Errorf(codes.InvalidArgument, "%v", berr)
		}
		record.IsConfirmed = *confirmed
	}
	if f.present("version") {
		if record.Version, err = f.reqInt64("version"); err != nil {
			return status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}

	return nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrRuleNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrReferenceNotFound):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, domain.ErrInvalidRecord),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidRule):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrConflict):
		return status.Errorf(codes.Aborted, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
