package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
	"transferledger/internal/service"
)

// LedgerHandler handles HTTP requests for the company ledger.
type LedgerHandler struct {
	company *service.CompanyLedger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(company *service.CompanyLedger) *LedgerHandler {
	return &LedgerHandler{company: company}
}

// LedgerEntryResponse is the HTTP response for one company ledger entry.
type LedgerEntryResponse struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Source      string          `json:"source"`
	TripID      string          `json:"trip_id,omitempty"`
	DriverKey   string          `json:"driver_key,omitempty"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// LedgerSummaryResponse is the HTTP response for the company ledger totals.
type LedgerSummaryResponse struct {
	Revenue decimal.Decimal `json:"revenue"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Entries int             `json:"entries"`
}

// GetEntries handles GET /v1/ledger/entries?kind=REVENUE|EXPENSE
func (h *LedgerHandler) GetEntries(c *gin.Context) {
	kind := domain.LedgerEntryKind(strings.ToUpper(c.Query("kind")))

	entries, err := h.company.Entries(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, LedgerEntryResponse{
			ID:          e.ID,
			Kind:        string(e.Kind),
			Source:      string(e.Source),
			TripID:      e.TripID,
			DriverKey:   e.DriverKey.String(),
			Reference:   e.Reference,
			Amount:      e.Amount,
			Description: e.Description,
			CreatedAt:   formatTime(e.CreatedAt),
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// GetSummary handles GET /v1/ledger/summary
func (h *LedgerHandler) GetSummary(c *gin.Context) {
	summary, err := h.company.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, LedgerSummaryResponse{
		Revenue: summary.Revenue,
		Expense: summary.Expense,
		Net:     summary.Net,
		Entries: summary.Entries,
	})
}
