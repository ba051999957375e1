package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	apperrors "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/errors"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpCfg := httpclient.Config{Timeout: 5 * time.Second, MaxRetries: 0}
	breaker := httpclient.NewBreakerClient(httpclient.New(httpCfg), httpclient.DefaultBreakerConfig("test-backend"), logger)

	return New(srv.URL, breaker, logger)
}

func testOrder() *domain.CheckoutOrder {
	return &domain.CheckoutOrder{
		BranchID: "branch-1",
		Phone:    "254712345678",
		Amount:   290,
		Lines: []domain.OrderLine{
			{ProductID: "prod-1", Brand: "Testbrand", Quantity: 2, UnitPrice: 50, Subtotal: 100},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order":{"ID":"ORD1"}}`))
	}))

	orderID, err := client.CreateOrder(context.Background(), "tok-1", testOrder())
	require.NoError(t, err)

	assert.Equal(t, "ORD1", orderID)
	assert.Equal(t, "/orders", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "branch-1", gotBody["branchId"])
	assert.Equal(t, "254712345678", gotBody["phoneNumber"])
	assert.Equal(t, float64(290), gotBody["total"])
}

func TestCreateOrderMissingID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"order":{}}`))
	}))

	_, err := client.CreateOrder(context.Background(), "", testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing order id")
}

func TestCreateOrderPreservesBackendMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"branch is closed for deliveries"}`))
	}))

	_, err := client.CreateOrder(context.Background(), "", testOrder())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "branch is closed for deliveries", appErr.Message)
}

func TestInitiatePayment(t *testing.T) {
	var gotBody map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/mpesa/initiate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"checkoutRequestId":"CR1","merchantRequestId":"MR1","success":true}`))
	}))

	stk, err := client.InitiatePayment(context.Background(), "tok-1", "ORD1", "254712345678", 290)
	require.NoError(t, err)

	assert.Equal(t, "CR1", stk.CheckoutRequestID)
	assert.Equal(t, "ORD1", gotBody["orderId"])
	assert.Equal(t, "254712345678", gotBody["phone"])
	assert.Equal(t, float64(290), gotBody["amount"])
}

func TestInitiatePaymentReportedFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))

	_, err := client.InitiatePayment(context.Background(), "", "ORD1", "254712345678", 290)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORD1")
}

func TestPaymentStatusNormalization(t *testing.T) {
	cases := []struct {
		backend string
		want    domain.PaymentStatus
	}{
		{"completed", domain.PaymentCompleted},
		{"SUCCESS", domain.PaymentCompleted},
		{"paid", domain.PaymentCompleted},
		{"failed", domain.PaymentFailed},
		{"cancelled", domain.PaymentFailed},
		{"canceled", domain.PaymentFailed},
		{"pending", domain.PaymentPending},
		{"processing", domain.PaymentPending},
		{"", domain.PaymentPending},
	}

	for _, tc := range cases {
		t.Run("status "+tc.backend, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/payments/ORD1/status", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"status":        tc.backend,
					"transactionId": "TXN1",
				})
			}))

			state, err := client.PaymentStatus(context.Background(), "", "ORD1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, state.Status)
			assert.Equal(t, "TXN1", state.TransactionID)
		})
	}
}

func TestBranchesAndProducts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/branches":
			_, _ = w.Write([]byte(`{"branches":[{"id":"branch-1","name":"Westlands"}]}`))
		case "/products/branch/branch-1":
			_, _ = w.Write([]byte(`{"products":[{"id":"prod-1","name":"Soda 500ml","unit_type":"bottle","price":50,"in_stock":true}]}`))
		case "/products":
			_, _ = w.Write([]byte(`{"products":null}`))
		default:
			http.NotFound(w, r)
		}
	}))

	branches, err := client.Branches(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "Westlands", branches[0].Name)

	products, err := client.Products(context.Background(), "", "branch-1")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(50), products[0].Price)

	// A null list from the backend comes back as an empty slice.
	all, err := client.Products(context.Background(), "", "")
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestAuthHeaderOmittedWithoutToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"branches":[]}`))
	}))

	_, err := client.Branches(context.Background(), "")
	require.NoError(t, err)
}

func TestPingAcceptsErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	assert.NoError(t, client.Ping(context.Background()))
}
