package grpc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
	"github.com/simaogato/fundledger/internal/usecase/balance"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// fields reads typed values out of a request struct
type fields map[string]*structpb.Value

func fieldsOf(req *structpb.Struct) fields {
	return fields(req.GetFields())
}

func (f fields) present(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func (f fields) str(key string) string {
	if !f.present(key) {
		return ""
	}
	switch v := f[key].GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(v.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(v.BoolValue)
	}
	return ""
}

func (f fields) optStr(key string) *string {
	if !f.present(key) {
		return nil
	}
	s := f.str(key)
	return &s
}

func (f fields) optInt64(key string) (*int64, error) {
	if !f.present(key) {
		return nil, nil
	}

	var n int64
	switch v := f[key].GetKind().(type) {
	case *structpb.Value_NumberValue:
		if v.NumberValue != math.Trunc(v.NumberValue) {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		n = int64(v.NumberValue)
	case *structpb.Value_StringValue:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.StringValue), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &n, nil
}

func (f fields) reqInt64(key string) (int64, error) {
	n, err := f.optInt64(key)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	return *n, nil
}

func (f fields) optDecimal(key string) (*decimal.Decimal, error) {
	if !f.present(key) {
		return nil, nil
	}

	var d decimal.Decimal
	switch v := f[key].GetKind().(type) {
	case *structpb.Value_StringValue:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v.StringValue))
		if err != nil {
			return nil, fmt.Errorf("invalid %s format: %w", key, err)
		}
		d = parsed
	case *structpb.Value_NumberValue:
		d = decimal.NewFromFloat(v.NumberValue)
	default:
		return nil, fmt.Errorf("invalid %s format", key)
	}
	return &d, nil
}

func (f fields) reqDecimal(key string) (decimal.Decimal, error) {
	d, err := f.optDecimal(key)
	if err != nil {
		return decimal.Zero, err
	}
	if d == nil {
		return decimal.Zero, fmt.Errorf("%s is required", key)
	}
	return *d, nil
}

// optTime accepts RFC 3339 timestamps and plain yyyy-MM-dd dates (UTC midnight)
func (f fields) optTime(key string) (*time.Time, error) {
	if !f.present(key) {
		return nil, nil
	}
	s := strings.TrimSpace(f.str(key))

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: want RFC 3339 or yyyy-MM-dd", key)
	}
	return &t, nil
}

func (f fields) optBool(key string) (*bool, error) {
	if !f.present(key) {
		return nil, nil
	}
	v, ok := f[key].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
	b := v.BoolValue
	return &b, nil
}

func (f fields) limit() (int, error) {
	n, err := f.optInt64("limit")
	if err != nil || n == nil {
		return 0, err
	}
	if *n < 0 {
		return 0, fmt.Errorf("limit must be non-negative")
	}
	return int(*n), nil
}

func recordToMap(r *domain.FinancialRecord, withAudit bool) map[string]interface{} {
	m := map[string]interface{}{
		"id":               r.ID,
		"type":             string(r.Type),
		"category":         r.Category,
		"amount":           r.Amount.String(),
		"currency":         r.Currency,
		"source":           r.Source,
		"description":      r.Description,
		"transaction_date": r.TransactionDate.UTC().Format(time.RFC3339),
		"created_at":       r.CreatedAt.UTC().Format(time.RFC3339),
		"fund_status":      r.FundStatus.String(),
		"is_confirmed":     r.IsConfirmed,
		"version":          r.Version,
	}

	optionalInt := map[string]*int64{
		"user_id":    r.UserID,
		"project_id": r.ProjectID,
		"contact_id": r.ContactID,
	}
	for key, v := range optionalInt {
		if v != nil {
			m[key] = *v
		}
	}
	if r.Commission != nil {
		m["commission"] = r.Commission.String()
	}
	if r.CommissionPaidBy != nil {
		m["commission_paid_by"] = *r.CommissionPaidBy
	}
	if r.TransactionHash != nil {
		m["transaction_hash"] = *r.TransactionHash
	}

	if withAudit {
		audit := make([]interface{}, 0, len(r.Audit))
		for _, e := range r.Audit {
			audit = append(audit, auditToMap(e))
		}
		m["audit"] = audit
	}

	return m
}

func auditToMap(e domain.AuditEntry) map[string]interface{} {
	return map[string]interface{}{
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
		"actor":     e.Actor,
		"field":     e.Field,
		"old_value": e.OldValue,
		"new_value": e.NewValue,
		"reason":    e.Reason,
		"text":      e.Describe(),
	}
}

func recordsToList(records []*domain.FinancialRecord) []interface{} {
	list := make([]interface{}, 0, len(records))
	for _, r := range records {
		list = append(list, recordToMap(r, false))
	}
	return list
}

func statusTotals(totals map[domain.FundStatus]decimal.Decimal) map[string]interface{} {
	m := make(map[string]interface{}, len(domain.FundStatuses))
	for _, st := range domain.FundStatuses {
		m[st.String()] = totals[st].String()
	}
	return m
}

func categoryTotals(totals []balance.CategoryTotal) []interface{} {
	list := make([]interface{}, 0, len(totals))
	for _, ct := range totals {
		list = append(list, map[string]interface{}{
			"category": ct.Category,
			"total":    ct.Total.String(),
			"count":    ct.Count,
		})
	}
	return list
}

func trendPoints(points []balance.TrendPoint) []interface{} {
	list := make([]interface{}, 0, len(points))
	for _, p := range points {
		list = append(list, map[string]interface{}{
			"period":   p.Period,
			"income":   p.Income.String(),
			"expenses": p.Expenses.String(),
		})
	}
	return list
}
