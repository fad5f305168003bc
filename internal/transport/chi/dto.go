package chi

import (
	"time"

	"github.com/kailas-cloud/catalograg/internal/domain"
	domusage "github.com/kailas-cloud/catalograg/internal/domain/usage"
	"github.com/kailas-cloud/catalograg/internal/index"
)

// ErrorResponseCode is the machine-readable error code of an API error.
type ErrorResponseCode string

// API error codes.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound           ErrorResponseCode = "not_found"
	ErrorResponseCodeCatalogUnavailable ErrorResponseCode = "catalog_unavailable"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// AnswerRequest is the body of POST /api/v1/answer.
type AnswerRequest struct {
	Query string `json:"query"`
}

// AnswerResponse is the reply to POST /api/v1/answer.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// TextResponse carries a fixed text (greeting, help).
type TextResponse struct {
	Text string `json:"text"`
}

// ItemResponse is the wire form of a catalog item.
type ItemResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// ItemListResponse lists recommended items.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

// DocumentResponse is the diagnostic form of an indexed document.
type DocumentResponse struct {
	ID   string        `json:"id"`
	Text string        `json:"text"`
	Item *ItemResponse `json:"item,omitempty"`
}

// DocumentListResponse lists indexed documents.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Total int                `json:"total"`
}

// SearchResultItem is a document with its similarity score.
type SearchResultItem struct {
	DocumentResponse
	Score float64 `json:"score"`
}

// SearchResultListResponse lists scored documents.
type SearchResultListResponse struct {
	Items []SearchResultItem `json:"items"`
	K     int                `json:"k"`
	Total int                `json:"total"`
}

// RefreshResponse reports a manual refresh.
type RefreshResponse struct {
	Upserted  int `json:"upserted"`
	Documents int `json:"documents"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Documents int               `json:"documents"`
}

// UsageBudget is the budget part of UsageResponse.
// TokensRemaining is -1 when the period has no limit.
type UsageBudget struct {
	TokensLimit     int64  `json:"tokens_limit"`
	TokensRemaining int64  `json:"tokens_remaining"`
	IsExhausted     bool   `json:"is_exhausted"`
	ResetsAt        string `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /api/v1/usage.
type UsageResponse struct {
	Period      string      `json:"period"`
	PeriodStart string      `json:"period_start,omitempty"`
	PeriodEnd   string      `json:"period_end,omitempty"`
	Provider    string      `json:"provider"`
	Tokens      int64       `json:"tokens"`
	Budget      UsageBudget `json:"budget"`
}

func usageToResponse(r domusage.Report) UsageResponse {
	b := r.Budget()
	return UsageResponse{
		Period:      string(r.Period()),
		PeriodStart: formatMillis(r.PeriodStart()),
		PeriodEnd:   formatMillis(r.PeriodEnd()),
		Provider:    r.Provider(),
		Tokens:      r.Tokens(),
		Budget: UsageBudget{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
			ResetsAt:        formatMillis(b.ResetsAt()),
		},
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func itemToResponse(it domain.Item) ItemResponse {
	var id int64
	if it.ID != nil {
		id = *it.ID
	}
	return ItemResponse{
		ID:          id,
		Name:        it.Name,
		Description: it.Description,
		Category:    it.Category,
		Price:       it.Price,
		Quantity:    it.Quantity,
	}
}

func documentToResponse(d domain.Document) DocumentResponse {
	resp := DocumentResponse{ID: d.ID(), Text: d.Text()}
	if it, ok := d.Item(); ok && it.HasID() {
		ir := itemToResponse(it)
		resp.Item = &ir
	}
	return resp
}

func scoredToResponse(s index.ScoredDocument) SearchResultItem {
	return SearchResultItem{
		DocumentResponse: documentToResponse(s.Document),
		Score:            s.Score,
	}
}
