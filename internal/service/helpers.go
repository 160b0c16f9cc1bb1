package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalid(field, "must be a valid UUID")
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, invalid(field, "expected YYYY-MM-DD")
	}
	return t, nil
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseTimestamp accepts RFC3339 or a bare date
func parseTimestamp(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, invalid(field, "expected an RFC3339 timestamp")
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, invalid(field, "must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, invalid(field, "must not be negative")
	}
	// money columns keep two places
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, invalid(field, "must have at most 2 decimal places")
	}
	return d, nil
}

func parseOptionalAmount(field, raw string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseAmount(field, raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func nullString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

// referenceNumber builds identifiers like PO-1718000000-3FA2C
func referenceNumber(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), strings.ToUpper(uuid.New().String()[:5]))
}

// writeAudit records a mutation inside the caller's transaction. A nil
// actor marks a system-driven change.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor *Actor, action, entityID, entityName string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if actor != nil {
		uid := actor.UserID
		entry.UserID = &uid
	}
	if err := repo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// jsonValue encodes v into a JSON column; nil becomes SQL NULL
func jsonValue(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return datatypes.JSON(b)
}

func stringList(raw datatypes.JSON) []string {
	var out []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// lineAmounts parses one priced line. total_price defaults to
// quantity x unit_price and a supplied value that disagrees is rejected.
func lineAmounts(prefix, quantity, unitPrice, totalPrice string) (q, unit, total decimal.Decimal, err error) {
	q, err = decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil || !q.IsPositive() {
		return q, unit, total, invalid(prefix+".quantity", "must be a positive number")
	}
	if !q.Equal(q.Round(3)) {
		return q, unit, total, invalid(prefix+".quantity", "must have at most 3 decimal places")
	}
	if unit, err = parseAmount(prefix+".unit_price", unitPrice); err != nil {
		return q, unit, total, err
	}
	total = q.Mul(unit).Round(2)
	if strings.TrimSpace(totalPrice) != "" {
		supplied, err := parseAmount(prefix+".total_price", totalPrice)
		if err != nil {
			return q, unit, total, err
		}
		if !supplied.Round(2).Equal(total) {
			return q, unit, total, invalid(prefix+".total_price", "must equal quantity x unit_price (%s)", total.StringFixed(2))
		}
	}
	return q, unit, total, nil
}

func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}
