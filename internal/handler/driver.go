package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
	"transferledger/internal/service"
)

const idempotencyKeyHeader = "Idempotency-Key"

// DriverHandler handles HTTP requests for driver accounts and their ledger.
type DriverHandler struct {
	ledger     *service.DriverLedger
	payouts    *service.PayoutService
	statements *service.StatementService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(ledger *service.DriverLedger, payouts *service.PayoutService, statements *service.StatementService) *DriverHandler {
	return &DriverHandler{
		ledger:     ledger,
		payouts:    payouts,
		statements: statements,
	}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	DriverID       string          `json:"driver_id" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	Phone          string          `json:"phone"`
	PlateNumber    string          `json:"plate_number"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// MovementRequest is the HTTP request body for payouts and cash handovers.
// Reference falls back to the Idempotency-Key header.
type MovementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=500"`
	Reference   string          `json:"reference" binding:"max=128"`
}

// DriverResponse is the HTTP response for driver account data.
type DriverResponse struct {
	DriverKey       string          `json:"driver_key"`
	Kind            string          `json:"kind"`
	DriverID        string          `json:"driver_id,omitempty"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone,omitempty"`
	PlateNumber     string          `json:"plate_number,omitempty"`
	CommissionRate  decimal.Decimal `json:"commission_rate"`
	Balance         decimal.Decimal `json:"balance"`
	TripCount       int             `json:"trip_count"`
	CashTrips       int             `json:"cash_trips"`
	CardTrips       int             `json:"card_trips"`
	TransferTrips   int             `json:"transfer_trips"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	TotalPayout     decimal.Decimal `json:"total_payout"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// BalanceResponse is the HTTP response for a balance lookup.
type BalanceResponse struct {
	DriverKey string          `json:"driver_key"`
	Balance   decimal.Decimal `json:"balance"`
}

// TransactionResponse is the HTTP response for one ledger transaction.
type TransactionResponse struct {
	ID            int64           `json:"id,string"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reference     string          `json:"reference"`
	TripID        string          `json:"trip_id,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Description   string          `json:"description,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Route         string          `json:"route,omitempty"`
	TriggerSource string          `json:"trigger_source,omitempty"`
	ActorID       string          `json:"actor_id,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// VerificationResponse is the HTTP response for a ledger verification.
type VerificationResponse struct {
	DriverKey    string          `json:"driver_key"`
	Balance      decimal.Decimal `json:"balance"`
	LogSum       decimal.Decimal `json:"log_sum"`
	Transactions int             `json:"transactions"`
	Consistent   bool            `json:"consistent"`
}

// PayoutResponse is the HTTP response for a payout or cash handover.
type PayoutResponse struct {
	Reference     string          `json:"reference"`
	DriverKey     string          `json:"driver_key"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	TransactionID int64           `json:"transaction_id,string"`
	EntryID       string          `json:"entry_id"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CreatedAt     string          `json:"created_at"`
	Replayed      bool            `json:"replayed"`
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "driver_id and name are required"})
		return
	}

	account, err := h.ledger.RegisterAffiliated(c.Request.Context(), service.RegisterDriverRequest{
		DriverID:       req.DriverID,
		Name:           req.Name,
		Phone:          req.Phone,
		PlateNumber:    req.PlateNumber,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(account))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	accounts, err := h.ledger.Accounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(accounts))
	for _, account := range accounts {
		response = append(response, toDriverResponse(account))
	}

	respondJSON(c, http.StatusOK, response)
}

// GetDriver handles GET /v1/drivers/:key
func (h *DriverHandler) GetDriver(c *gin.Context) {
	key, ok := h.driverKey(c)
	if !ok {
		return
	}

	account, err := h.ledger.Account(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(account))
}

// GetBalance handles GET /v1/drivers/:key/balance
func (h *DriverHandler) GetBalance(c *gin.Context) {
	key, ok := h.driverKey(c)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, BalanceResponse{DriverKey: key.String(), Balance: balance})
}

// GetTransactions handles GET /v1/drivers/:key/transactions
func (h *DriverHandler) GetTransactions(c *gin.Context) {
	key, ok := h.driverKey(c)
	if !ok {
		return
	}

	txns, err := h.ledger.History(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		response = append(response, toTransactionResponse(txn))
	}

	respondJSON(c, http.StatusOK, response)
}

// Verify handles GET /v1/drivers/:key/verify
func (h *DriverHandler) Verify(c *gin.Context) {
	key, ok := h.driverKey(c)
	if !ok {
		return
	}

	result, err := h.ledger.Verify(c.Request.Context(), key)
	if errors.Is(err, service.ErrLedgerInconsistent) && result != nil {
		err = nil
	}
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusOK
	if !result.Consistent {
		code = http.StatusConflict
	}
	respondJSON(c, code, VerificationResponse{
		DriverKey:    result.DriverKey.String(),
		Balance:      result.Balance,
		LogSum:       result.LogSum,
		Transactions: result.Transactions,
		Consistent:   result.Consistent,
	})
}

// RecordPayout handles POST /v1/drivers/:key/payouts
func (h *DriverHandler) RecordPayout(c *gin.Context) {
	h.movement(c, h.payouts.RecordPayout)
}

// ReconcileCash handles POST /v1/drivers/:key/cash-handovers
func (h *DriverHandler) ReconcileCash(c *gin.Context) {
	h.movement(c, h.payouts.ReconcileCash)
}

// GetStatement handles GET /v1/drivers/:key/statement
func (h *DriverHandler) GetStatement(c *gin.Context) {
	key, ok := h.driverKey(c)
	if !ok {
		return
	}

	statement, err := h.statements.GenerateStatement(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}

	c.String(http.StatusOK, h.statements.FormatStatement(statement))
}

func (h *DriverHandler) movement(c *gin.Context, record func(context.Context, service.MovementRequest) (*domain.Payout, error)) {
	key, ok := h.driverKey(c)
	if !ok {
		return
	}

	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reference := req.Reference
	if reference == "" {
		reference = c.GetHeader(idempotencyKeyHeader)
	}

	payout, err := record(c.Request.Context(), service.MovementRequest{
		DriverKey:   key,
		Amount:      req.Amount,
		Description: req.Description,
		Reference:   reference,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusCreated
	if payout.Replayed {
		code = http.StatusOK
	}
	respondJSON(c, code, PayoutResponse{
		Reference:     payout.Reference,
		DriverKey:     payout.DriverKey.String(),
		Amount:        payout.Amount,
		Description:   payout.Description,
		TransactionID: payout.TransactionID,
		EntryID:       payout.EntryID,
		BalanceAfter:  payout.BalanceAfter,
		CreatedAt:     formatTime(payout.CreatedAt),
		Replayed:      payout.Replayed,
	})
}

// driverKey resolves the :key path parameter, responding with 400 when it is malformed.
func (h *DriverHandler) driverKey(c *gin.Context) (domain.DriverKey, bool) {
	key, err := h.ledger.ResolveKey(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return key, true
}

func toDriverResponse(account *domain.DriverAccount) DriverResponse {
	return DriverResponse{
		DriverKey:       account.Key.String(),
		Kind:            string(account.Kind),
		DriverID:        account.DriverID,
		Name:            account.Name,
		Phone:           account.Phone,
		PlateNumber:     account.PlateNumber,
		CommissionRate:  account.CommissionRate,
		Balance:         account.Balance,
		TripCount:       account.TripCount,
		CashTrips:       account.CashTrips,
		CardTrips:       account.CardTrips,
		TransferTrips:   account.TransferTrips,
		TotalCommission: account.TotalCommission,
		TotalPayout:     account.TotalPayout,
		CreatedAt:       formatTime(account.CreatedAt),
		UpdatedAt:       formatTime(account.UpdatedAt),
	}
}

func toTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            txn.ID,
		Kind:          string(txn.Kind),
		Amount:        txn.Amount,
		Delta:         txn.Delta(),
		BalanceBefore: txn.BalanceBefore,
		BalanceAfter:  txn.BalanceAfter,
		Reference:     txn.Reference,
		TripID:        txn.TripID,
		PaymentMethod: string(txn.PaymentMethod),
		Description:   txn.Description,
		CustomerName:  txn.CustomerName,
		Route:         txn.Route,
		TriggerSource: string(txn.TriggerSource),
		ActorID:       txn.ActorID,
		CreatedAt:     formatTime(txn.CreatedAt),
	}
}
