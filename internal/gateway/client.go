// Package gateway is the typed client for the storefront backend REST API.
// The backend owns orders, payments, and the product catalog; this service
// only orchestrates on top of it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/httpclient"
)

// Client calls the storefront backend over HTTP with retries and a circuit
// breaker. The caller's bearer token is forwarded verbatim on every request
// that has one.
type Client struct {
	baseURL string
	http    *httpclient.BreakerClient
	logger  *slog.Logger
}

// New creates a backend client. baseURL is the API root without a trailing
// slash, e.g. "https://api.example.co.ke/api/v1".
func New(baseURL string, http *httpclient.BreakerClient, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		logger:  logger,
	}
}

// STKPush is the backend's response to an M-Pesa payment initiation.
type STKPush struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
	MerchantRequestID string `json:"merchantRequestId"`
	TransactionID     string `json:"transactionId"`
	Success           bool   `json:"success"`
}

// Branch is a retail branch from the backend catalog.
type Branch struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Product is a catalog product as the backend exposes it.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Brand         string `json:"brand,omitempty"`
	Category      string `json:"category,omitempty"`
	UnitType      string `json:"unit_type"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"original_price,omitempty"`
	BranchID      string `json:"branch_id,omitempty"`
	InStock       bool   `json:"in_stock"`
}

// CreateOrder submits the order and returns the backend's order ID.
func (c *Client) CreateOrder(ctx context.Context, token string, order *domain.CheckoutOrder) (string, error) {
	body := struct {
		BranchID    string             `json:"branchId"`
		PhoneNumber string             `json:"phoneNumber"`
		Total       int64              `json:"total"`
		Items       []domain.OrderLine `json:"items"`
	}{
		BranchID:    order.BranchID,
		PhoneNumber: order.Phone,
		Total:       order.Amount,
		Items:       order.Lines,
	}

	var out struct {
		Order struct {
			ID string `json:"ID"`
		} `json:"order"`
	}
	if err := c.postJSON(ctx, "/orders", token, body, &out); err != nil {
		return "", err
	}
	if out.Order.ID == "" {
		return "", fmt.Errorf("create order: backend response missing order id")
	}

	c.logger.InfoContext(ctx, "order created",
		slog.String("order_id", out.Order.ID),
		slog.String("branch_id", order.BranchID),
		slog.Int64("amount", order.Amount),
	)
	return out.Order.ID, nil
}

// InitiatePayment asks the backend to fire an M-Pesa STK push for the order.
func (c *Client) InitiatePayment(ctx context.Context, token, orderID, phone string, amount int64) (*STKPush, error) {
	body := struct {
		OrderID string `json:"orderId"`
		Phone   string `json:"phone"`
		Amount  int64  `json:"amount"`
	}{OrderID: orderID, Phone: phone, Amount: amount}

	var out STKPush
	if err := c.postJSON(ctx, "/payments/mpesa/initiate", token, body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("initiate payment: backend reported failure for order %s", orderID)
	}

	c.logger.InfoContext(ctx, "payment initiated",
		slog.String("order_id", orderID),
		slog.String("checkout_request_id", out.CheckoutRequestID),
	)
	return &out, nil
}

// PaymentStatus queries the backend for the payment state of an order.
func (c *Client) PaymentStatus(ctx context.Context, token, orderID string) (*domain.PaymentState, error) {
	var out struct {
		Status        string `json:"status"`
		TransactionID string `json:"transactionId"`
	}
	if err := c.getJSON(ctx, "/payments/"+orderID+"/status", token, &out); err != nil {
		return nil, err
	}

	return &domain.PaymentState{
		Status:        normalizeStatus(out.Status),
		TransactionID: out.TransactionID,
	}, nil
}

// Branches lists the retailer's branches.
func (c *Client) Branches(ctx context.Context, token string) ([]Branch, error) {
	var out struct {
		Branches []Branch `json:"branches"`
	}
	if err := c.getJSON(ctx, "/branches", token, &out); err != nil {
		return nil, err
	}
	if out.Branches == nil {
		out.Branches = []Branch{}
	}
	return out.Branches, nil
}

// Products lists catalog products, scoped to a branch when branchID is set.
func (c *Client) Products(ctx context.Context, token, branchID string) ([]Product, error) {
	path := "/products"
	if branchID != "" {
		path = "/products/branch/" + branchID
	}

	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.getJSON(ctx, path, token, &out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		out.Products = []Product{}
	}
	return out.Products, nil
}

// Ping checks backend reachability for the readiness probe. Any response,
// even an error status, means the backend is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/branches", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, token)

	return c.exchange(ctx, req, path, out)
}

func (c *Client) getJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	setAuth(req, token)

	return c.exchange(ctx, req, path, out)
}

func (c *Client) exchange(ctx context.Context, req *http.Request, path string, out any) error {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, req.Method+" "+path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// normalizeStatus folds the backend's payment status vocabulary into the
// three states the poller acts on. Anything unrecognized counts as pending.
func normalizeStatus(s string) domain.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "success", "paid":
		return domain.PaymentCompleted
	case "failed", "cancelled", "canceled":
		return domain.PaymentFailed
	default:
		return domain.PaymentPending
	}
}
