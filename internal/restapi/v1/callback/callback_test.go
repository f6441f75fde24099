package v1callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/eurofurence/reg-payment-mia-adapter/internal/config"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/entities"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/interaction"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/logging"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/database/inmemory"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/downstreams/miaapi"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/repository/locking"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/restapi/middleware"
	"github.com/eurofurence/reg-payment-mia-adapter/internal/signature"
)

const testSignatureKey = "test-signature-key"

func TestMain(m *testing.M) {
	logging.Setup("ERROR", false)
	os.Exit(m.Run())
}

// noBank fails loudly if a callback ever reaches out to the bank.
type noBank struct {
	miaapi.MiaApi
}

func setupServer(t *testing.T, signatureKey string) (http.Handler, interaction.Interactor) {
	i, err := interaction.NewServiceInteractor(
		inmemory.NewInMemoryProvider(),
		noBank{},
		locking.NewMemoryLocker(),
		config.MiaConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			SignatureKey: signatureKey,
		},
		logging.NewNoopLogger(),
	)
	require.NoError(t, err)

	_, err = i.RegisterOrder(context.Background(), entities.Order{
		OrderID:  "order-42",
		Total:    decimal.RequireFromString("123.45"),
		Currency: "MDL",
	})
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(middleware.RequestIdMiddleware())
	router.Use(middleware.LogRequestIdMiddleware())
	router.Route("/api/rest/v1", func(r chi.Router) {
		Create(r, i, signatureKey)
	})

	return router, i
}

func resultFields(orderID string, amount string, qrStatus string) map[string]interface{} {
	return map[string]interface{}{
		"orderId":     orderID,
		"qrStatus":    qrStatus,
		"amount":      json.Number(amount),
		"currency":    "MDL",
		"payId":       "P1",
		"referenceId": "R1",
	}
}

func signedBody(t *testing.T, fields map[string]interface{}, sig string) string {
	if sig == "" {
		sig = signature.Compute(fields, testSignatureKey)
	}
	b, err := json.Marshal(map[string]interface{}{
		"result":    fields,
		"signature": sig,
	})
	require.NoError(t, err)
	return string(b)
}

func post(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/rest/v1/callback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCallbackEndToEnd(t *testing.T) {
	handler, i := setupServer(t, testSignatureKey)

	body := signedBody(t, resultFields("order-42", "123.45", "Paid"), "lyUrb2XmI/18MV3zYsY1QN7yT7nE+BWZXF+o2St+8lk=")

	rec := post(handler, body)
	require.Equal(t, http.StatusOK, rec.Code)

	order, err := i.GetOrder(context.Background(), "order-42")
	require.NoError(t, err)
	require.True(t, order.IsPaid())
	require.Equal(t, "R1", order.TransactionID)
	require.Equal(t, "P1", order.GetMeta(entities.MetaPayID))
	require.JSONEq(t, `{"orderId":"order-42","qrStatus":"Paid","amount":123.45,"currency":"MDL","payId":"P1","referenceId":"R1"}`,
		order.GetMeta(entities.MetaPaymentReceipt))

	notes, err := i.GetOrderNotes(context.Background(), "order-42")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "Order #order-42 payment completed via maib MIA: R1", notes[0].Message)

	// the bank retries notifications, a repeated one is acknowledged without effect
	rec = post(handler, body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	notes, err = i.GetOrderNotes(context.Background(), "order-42")
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestCallback(t *testing.T) {
	tests := []struct {
		name           string
		body           func(t *testing.T) string
		expectedStatus int
		expectedBody   string
		expectPaid     bool
	}{
		{
			name: "Should reject a tampered amount",
			body: func(t *testing.T) string {
				sig := signature.Compute(resultFields("order-42", "123.45", "Paid"), testSignatureKey)
				return signedBody(t, resultFields("order-42", "1.00", "Paid"), sig)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid callback signature",
		},
		{
			name: "Should reject a missing signature",
			body: func(t *testing.T) string {
				return `{"result":{"orderId":"order-42","qrStatus":"Paid","amount":123.45,"currency":"MDL"}}`
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid callback signature",
		},
		{
			name: "Should fail on an empty body",
			body: func(t *testing.T) string {
				return ""
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "Should fail on malformed json",
			body: func(t *testing.T) string {
				return `{"result":`
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "Should acknowledge a notification that is not a payment",
			body: func(t *testing.T) string {
				return signedBody(t, resultFields("order-42", "123.45", "Expired"), "")
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name: "Should report an unknown order",
			body: func(t *testing.T) string {
				return signedBody(t, resultFields("unknown", "123.45", "Paid"), "")
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "Order not found",
		},
		{
			name: "Should reject a payment not matching the order total",
			body: func(t *testing.T) string {
				return signedBody(t, resultFields("order-42", "123.4", "Paid"), "")
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "Should accept the paid status in any case",
			body: func(t *testing.T) string {
				return signedBody(t, resultFields("order-42", "123.450", "PAID"), "")
			},
			expectedStatus: http.StatusOK,
			expectPaid:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, i := setupServer(t, testSignatureKey)

			rec := post(handler, tt.body(t))
			require.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				require.Equal(t, tt.expectedBody, rec.Body.String())
			}

			order, err := i.GetOrder(context.Background(), "order-42")
			require.NoError(t, err)
			require.Equal(t, tt.expectPaid, order.IsPaid())
		})
	}
}

func TestCallbackProbe(t *testing.T) {
	handler, _ := setupServer(t, testSignatureKey)

	req := httptest.NewRequest(http.MethodGet, "/api/rest/v1/callback", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "maib MIA Callback URL", rec.Body.String())
}

func TestCallbackWithoutSignatureKey(t *testing.T) {
	handler, i := setupServer(t, "")

	rec := post(handler, signedBody(t, resultFields("order-42", "123.45", "Paid"), ""))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	order, err := i.GetOrder(context.Background(), "order-42")
	require.NoError(t, err)
	require.False(t, order.IsPaid())
}
