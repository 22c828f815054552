package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Turn is one message of a conversation window.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

type PlanRequest struct {
	Question  string        `json:"question" binding:"required"`
	SessionID string        `json:"session_id,omitempty"`
	DateFrom  string        `json:"date_from,omitempty" example:"2026-01-01"`
	DateTo    string        `json:"date_to,omitempty" example:"2026-03-31"`
	Flags     SnapshotFlags `json:"flags"`
}

type ToolChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// AnswerEnvelope is returned by AskQuestion and PlanAndAnswer.
type AnswerEnvelope struct {
	Answer      string   `json:"answer"`
	PlainText   string   `json:"plain_text"`
	Markdown    string   `json:"markdown"`
	DataSources []string `json:"data_sources"`
}

// ToolChatResult is returned by ChatWithTools.
type ToolChatResult struct {
	Answer         string `json:"answer"`
	MethodUsed     string `json:"method_used"` // "function_call", "direct", "rag" or "fallback"
	FunctionCalled string `json:"function_called,omitempty"`
}

// SQLStep is one model-proposed supplemental query.
type SQLStep struct {
	Alias       string `json:"alias"`
	Description string `json:"description"`
	Statement   string `json:"sql"`
}

// SQLPlan is built per question and discarded after use.
type SQLPlan struct {
	Summary string    `json:"summary"`
	Steps   []SQLStep `json:"steps"`
}

// SQLExecutionResult holds at most rowCap rows of one executed statement.
type SQLExecutionResult struct {
	Alias       string           `json:"alias"`
	Description string           `json:"description"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SnapshotFlags select the optional sections of an analytics snapshot.
type SnapshotFlags struct {
	IncludeInventory     bool `json:"include_inventory"`
	IncludeCategoryShare bool `json:"include_category_share"`
	IncludeTopSellers    bool `json:"include_top_sellers"`
	// IncludeConfirmedDemand counts Confirmed (not yet Delivered) orders as sold
	// when computing top sellers.
	IncludeConfirmedDemand bool `json:"include_confirmed_demand"`
}

type CategoryShare struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
	Share    decimal.Decimal `json:"share"` // percent of total revenue
}

type TopSeller struct {
	Title    string `json:"title"`
	Quantity int64  `json:"quantity"`
}

type InventorySummary struct {
	Titles       int64           `json:"titles"`
	Units        int64           `json:"units"`
	LowStock     int64           `json:"low_stock"`
	OutOfStock   int64           `json:"out_of_stock"`
	StockAtCost  decimal.Decimal `json:"stock_at_cost"`
	StockAtPrice decimal.Decimal `json:"stock_at_price"`
}

// AnalyticsSnapshot is the pre-aggregated, read-only dataset handed to the planner.
type AnalyticsSnapshot struct {
	Range         DateRange         `json:"range"`
	Orders        int64             `json:"orders"`
	Revenue       decimal.Decimal   `json:"revenue"`
	Cost          decimal.Decimal   `json:"cost"`
	Profit        decimal.Decimal   `json:"profit"`
	Inventory     *InventorySummary `json:"inventory,omitempty"`
	CategoryShare []CategoryShare   `json:"category_share,omitempty"`
	TopSellers    []TopSeller       `json:"top_sellers,omitempty"`
}

// Sections names the parts of the snapshot that carry data.
func (s *AnalyticsSnapshot) Sections() []string {
	if s == nil {
		return nil
	}
	out := []string{"Sales summary"}
	if s.Inventory != nil {
		out = append(out, "Inventory summary")
	}
	if len(s.CategoryShare) > 0 {
		out = append(out, "Category revenue share")
	}
	if len(s.TopSellers) > 0 {
		out = append(out, "Top sellers")
	}
	return out
}

// BookRecord is a catalog candidate being enriched with external metadata.
type BookRecord struct {
	Title         string `json:"title"`
	Author        string `json:"author,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	ISBN          string `json:"isbn,omitempty"`
	PublishedYear int    `json:"published_year,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`
	Language      string `json:"language,omitempty"`
	CoverURL      string `json:"cover_url,omitempty"`
	Slug          string `json:"slug"`
}

type EnrichRequest struct {
	Books []BookRecord `json:"books" binding:"required"`
}

type SpeakRequest struct {
	Text string `json:"text" binding:"required"`
}

type SpeakResponse struct {
	MimeType  string `json:"mime_type"`
	AudioData string `json:"audio_data"` // base64
}
