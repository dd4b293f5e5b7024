package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"transferledger/internal/app"
	"transferledger/internal/events"
	"transferledger/internal/handler"
	"transferledger/internal/repository/memory"
	"transferledger/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// server is the full HTTP stack over an in-memory store, without Redis or RabbitMQ.
type server struct {
	t      *testing.T
	router *gin.Engine
	logs   *test.Hook
}

func newServer(t *testing.T) *server {
	t.Helper()

	logger, hook := test.NewNullLogger()
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	store := memory.NewStore()
	publisher := events.NewLogPublisher(logger)
	cfg := service.CompletionConfig{PersistenceTimeout: 5 * time.Second, LockTTL: time.Second}

	ledger := service.NewDriverLedger(store, node, nil, "TR", logger)
	company := service.NewCompanyLedger(store, logger)
	gateway := service.NewCompletionGateway(store, ledger, company, nil, publisher, logger, cfg)
	trips := service.NewTripService(store, ledger, "TRY", logger)
	payouts := service.NewPayoutService(store, ledger, company, nil, publisher, logger, cfg)

	router := app.NewRouter(app.RouterDeps{
		TripHandler:   handler.NewTripHandler(trips, gateway),
		DriverHandler: handler.NewDriverHandler(ledger, payouts, service.NewStatementService(ledger)),
		LedgerHandler: handler.NewLedgerHandler(company),
		Logger:        logger,
	})

	return &server{t: t, router: router, logs: hook}
}

// do sends a request and returns the recorder. body is marshalled as JSON when not nil.
func (s *server) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.doWithHeader(method, path, body, "", "")
}

func (s *server) doWithHeader(method, path string, body any, header, value string) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// doJSON sends a request, checks the status and decodes the response into out.
func (s *server) doJSON(method, path string, body any, wantStatus int, out any) {
	s.t.Helper()

	w := s.do(method, path, body)
	require.Equal(s.t, wantStatus, w.Code, "body: %s", w.Body.String())
	if out != nil {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out))
	}
}

func (s *server) registerDriver(id string, rate int64) {
	s.t.Helper()
	s.doJSON(http.MethodPost, "/v1/drivers", gin.H{
		"driver_id":       id,
		"name":            "Driver " + id,
		"phone":           "+905321234567",
		"commission_rate": rate,
	}, http.StatusCreated, nil)
}

func (s *server) createTrip(price, method string) handler.TripResponse {
	s.t.Helper()
	var trip handler.TripResponse
	s.doJSON(http.MethodPost, "/v1/trips", gin.H{
		"total_price":     price,
		"payment_method":  method,
		"customer_name":   "Ayse Yilmaz",
		"pickup_address":  "IST Airport",
		"dropoff_address": "Taksim",
	}, http.StatusCreated, &trip)
	return trip
}

func (s *server) assign(tripID string, body any) handler.TripResponse {
	s.t.Helper()
	var trip handler.TripResponse
	s.doJSON(http.MethodPost, "/v1/trips/"+tripID+"/assign", body, http.StatusOK, &trip)
	return trip
}

func (s *server) complete(tripID string) handler.SettlementResponse {
	s.t.Helper()
	var summary handler.SettlementResponse
	s.doJSON(http.MethodPost, "/v1/trips/"+tripID+"/complete", gin.H{
		"trigger_source": "manual",
		"actor_id":       "dispatcher-1",
	}, http.StatusOK, &summary)
	return summary
}

func (s *server) balance(key string) decimal.Decimal {
	s.t.Helper()
	var resp handler.BalanceResponse
	s.doJSON(http.MethodGet, "/v1/drivers/"+key+"/balance", nil, http.StatusOK, &resp)
	return resp.Balance
}

func (s *server) transactions(key string) []handler.TransactionResponse {
	s.t.Helper()
	var resp []handler.TransactionResponse
	s.doJSON(http.MethodGet, "/v1/drivers/"+key+"/transactions", nil, http.StatusOK, &resp)
	return resp
}

func (s *server) summary() handler.LedgerSummaryResponse {
	s.t.Helper()
	var resp handler.LedgerSummaryResponse
	s.doJSON(http.MethodGet, "/v1/ledger/summary", nil, http.StatusOK, &resp)
	return resp
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
