package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bookdesk/logging"
)

const (
	lookupRowCap = 50
	searchRowCap = 20
)

// PlaceholderFor returns the bind style of a database/sql driver name.
func PlaceholderFor(driver string) squirrel.PlaceholderFormat {
	switch driver {
	case "sqlserver":
		return squirrel.AtP
	case "pgx":
		return squirrel.Dollar
	default:
		return squirrel.Question
	}
}

// Catalog answers the typed business lookups behind the tool router and the
// analytics snapshot. Queries are built with squirrel and run through the
// Executor, so they obey the same read-only rules as generated SQL.
type Catalog struct {
	exec   *Executor
	sb     squirrel.StatementBuilderType
	logger *zap.Logger
}

func NewCatalog(exec *Executor, driver string, logger *zap.Logger) *Catalog {
	return &Catalog{
		exec:   exec,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(PlaceholderFor(driver)),
		logger: logging.OrNop(logger).Named("catalog"),
	}
}

func (c *Catalog) query(ctx context.Context, b squirrel.Sqlizer, rowCap int) ([]map[string]any, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	res, err := c.exec.Execute(ctx, query, rowCap, args...)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// OrderLookup returns the order header, its customer and its line items.
func (c *Catalog) OrderLookup(ctx context.Context, orderID string) (map[string]any, error) {
	id, err := parseID(orderID)
	if err != nil {
		return map[string]any{"found": false, "order_id": orderID}, nil
	}

	header, err := c.query(ctx, c.sb.
		Select("o.id AS order_id", "o.status", "o.order_date", "o.total_amount",
			"c.full_name AS customer_name", "c.email AS customer_email").
		From("orders o").
		Join("customer c ON c.id = o.customer_id").
		Where(squirrel.Eq{"o.id": id}), 1)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}
	if len(header) == 0 {
		return map[string]any{"found": false, "order_id": orderID}, nil
	}

	items, err := c.query(ctx, c.sb.
		Select("b.title", "b.author", "oi.quantity", "oi.unit_price").
		From("order_item oi").
		Join("book b ON b.id = oi.book_id").
		Where(squirrel.Eq{"oi.order_id": id}).
		OrderBy("oi.id"), lookupRowCap)
	if err != nil {
		return nil, fmt.Errorf("order %d items: %w", id, err)
	}

	out := header[0]
	out["found"] = true
	out["items"] = items
	return out, nil
}

// CustomerOrderSearch finds recent orders by customer email, phone or name.
func (c *Catalog) CustomerOrderSearch(ctx context.Context, identifier string) (map[string]any, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return map[string]any{"customer": identifier, "orders": []map[string]any{}}, nil
	}

	var match squirrel.Sqlizer
	switch {
	case strings.Contains(identifier, "@"):
		match = squirrel.Eq{"LOWER(c.email)": strings.ToLower(identifier)}
	case isPhone(identifier):
		match = squirrel.Eq{"c.phone": identifier}
	default:
		match = squirrel.Like{"LOWER(c.full_name)": "%" + escapeLike(strings.ToLower(identifier)) + "%"}
	}

	orders, err := c.query(ctx, c.sb.
		Select("o.id AS order_id", "o.status", "o.order_date", "o.total_amount", "c.full_name AS customer_name").
		From("orders o").
		Join("customer c ON c.id = o.customer_id").
		Where(match).
		OrderBy("o.order_date DESC"), searchRowCap)
	if err != nil {
		return nil, fmt.Errorf("customer orders: %w", err)
	}
	return map[string]any{"customer": identifier, "orders": orders}, nil
}

// InvoiceLookup accepts either an invoice number or a numeric id.
func (c *Catalog) InvoiceLookup(ctx context.Context, invoiceID string) (map[string]any, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	var match squirrel.Sqlizer = squirrel.Eq{"i.invoice_number": invoiceID}
	if id, err := parseID(invoiceID); err == nil {
		match = squirrel.Or{squirrel.Eq{"i.id": id}, match}
	}

	rows, err := c.query(ctx, c.sb.
		Select("i.invoice_number", "i.issued_at", "i.amount", "i.status",
			"o.id AS order_id", "o.status AS order_status", "c.full_name AS customer_name").
		From("invoice i").
		Join("orders o ON o.id = i.order_id").
		Join("customer c ON c.id = o.customer_id").
		Where(match), 1)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, err)
	}
	if len(rows) == 0 {
		return map[string]any{"found": false, "invoice_id": invoiceID}, nil
	}
	out := rows[0]
	out["found"] = true
	return out, nil
}

func parseID(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	return strconv.ParseInt(s, 10, 64)
}

func isPhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-() ", r):
		default:
			return false
		}
	}
	return digits >= 7
}

var likeEscaper = strings.NewReplacer("%", "", "_", "", "[", "")

// escapeLike drops wildcard characters a user might type.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// toDecimal reads aggregate values the way the drivers return them.
func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return val
	case int64:
		return decimal.NewFromInt(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		d, err := decimal.NewFromString(fmt.Sprint(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

func toInt64(v any) int64 {
	return toDecimal(v).IntPart()
}
