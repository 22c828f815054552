package service

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bookdesk/config"
	"bookdesk/models"
)

const (
	statusDelivered = "Delivered"
	statusConfirmed = "Confirmed"
	topSellerCount  = 10
	categoryCap     = 50
)

// AnalyticsSnapshot aggregates the sales, inventory, category and top-seller
// figures handed to the planner. Revenue, cost and profit count Delivered
// orders only. Optional sections are computed when their flag is set; a
// failing optional section is logged and left out.
func (c *Catalog) AnalyticsSnapshot(ctx context.Context, dr models.DateRange, flags models.SnapshotFlags) (*models.AnalyticsSnapshot, error) {
	snap := &models.AnalyticsSnapshot{Range: dr}

	sales, err := c.query(ctx, c.salesBase(dr, []string{statusDelivered}).
		Columns("COUNT(DISTINCT o.id) AS orders",
			"COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS revenue",
			"COALESCE(SUM(oi.quantity * b.cost), 0) AS cost"), 1)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}
	if len(sales) > 0 {
		snap.Orders = toInt64(sales[0]["orders"])
		snap.Revenue = toDecimal(sales[0]["revenue"]).Round(2)
		snap.Cost = toDecimal(sales[0]["cost"]).Round(2)
	}
	snap.Profit = snap.Revenue.Sub(snap.Cost)

	if flags.IncludeInventory {
		if inv, err := c.inventory(ctx); err != nil {
			c.logger.Warn("inventory section skipped", zap.Error(err))
		} else {
			snap.Inventory = inv
		}
	}
	if flags.IncludeCategoryShare {
		if shares, err := c.categoryShare(ctx, dr, snap.Revenue); err != nil {
			c.logger.Warn("category share section skipped", zap.Error(err))
		} else {
			snap.CategoryShare = shares
		}
	}
	if flags.IncludeTopSellers {
		statuses := []string{statusDelivered}
		if flags.IncludeConfirmedDemand {
			statuses = append(statuses, statusConfirmed)
		}
		if top, err := c.topSellers(ctx, dr, statuses); err != nil {
			c.logger.Warn("top sellers section skipped", zap.Error(err))
		} else {
			snap.TopSellers = top
		}
	}
	return snap, nil
}

// salesBase selects from order lines joined to their order and book, filtered
// by status and the half-open range [From, To). Zero bounds are open.
func (c *Catalog) salesBase(dr models.DateRange, statuses []string) squirrel.SelectBuilder {
	q := c.sb.Select().
		From("orders o").
		Join("order_item oi ON oi.order_id = o.id").
		Join("book b ON b.id = oi.book_id").
		Where(squirrel.Eq{"o.status": statuses})
	if !dr.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"o.order_date": dr.From})
	}
	if !dr.To.IsZero() {
		q = q.Where(squirrel.Lt{"o.order_date": dr.To})
	}
	return q
}

func (c *Catalog) inventory(ctx context.Context) (*models.InventorySummary, error) {
	rows, err := c.query(ctx, c.sb.
		Select("COUNT(*) AS titles",
			"COALESCE(SUM(stock_quantity), 0) AS units",
			fmt.Sprintf("COALESCE(SUM(CASE WHEN stock_quantity > 0 AND stock_quantity <= COALESCE(reorder_level, %d) THEN 1 ELSE 0 END), 0) AS low_stock", config.LowStockThreshold),
			"COALESCE(SUM(CASE WHEN stock_quantity <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock",
			"COALESCE(SUM(stock_quantity * cost), 0) AS stock_at_cost",
			"COALESCE(SUM(stock_quantity * price), 0) AS stock_at_price").
		From("book"), 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &models.InventorySummary{}, nil
	}
	r := rows[0]
	return &models.InventorySummary{
		Titles:       toInt64(r["titles"]),
		Units:        toInt64(r["units"]),
		LowStock:     toInt64(r["low_stock"]),
		OutOfStock:   toInt64(r["out_of_stock"]),
		StockAtCost:  toDecimal(r["stock_at_cost"]).Round(2),
		StockAtPrice: toDecimal(r["stock_at_price"]).Round(2),
	}, nil
}

func (c *Catalog) categoryShare(ctx context.Context, dr models.DateRange, total decimal.Decimal) ([]models.CategoryShare, error) {
	rows, err := c.query(ctx, c.salesBase(dr, []string{statusDelivered}).
		Columns("b.category", "SUM(oi.quantity * oi.unit_price) AS revenue").
		GroupBy("b.category").
		OrderBy("revenue DESC"), categoryCap)
	if err != nil {
		return nil, err
	}

	hundred := decimal.NewFromInt(100)
	out := make([]models.CategoryShare, 0, len(rows))
	for _, r := range rows {
		revenue := toDecimal(r["revenue"]).Round(2)
		share := decimal.Zero
		if total.IsPositive() {
			share = revenue.Mul(hundred).Div(total).Round(2)
		}
		category, _ := r["category"].(string)
		if category == "" {
			category = "Uncategorized"
		}
		out = append(out, models.CategoryShare{Category: category, Revenue: revenue, Share: share})
	}
	return out, nil
}

func (c *Catalog) topSellers(ctx context.Context, dr models.DateRange, statuses []string) ([]models.TopSeller, error) {
	rows, err := c.query(ctx, c.salesBase(dr, statuses).
		Columns("b.title", "SUM(oi.quantity) AS quantity").
		GroupBy("b.title").
		OrderBy("quantity DESC", "b.title"), topSellerCount)
	if err != nil {
		return nil, err
	}

	out := make([]models.TopSeller, 0, len(rows))
	for _, r := range rows {
		title, _ := r["title"].(string)
		out = append(out, models.TopSeller{Title: title, Quantity: toInt64(r["quantity"])})
	}
	return out, nil
}
