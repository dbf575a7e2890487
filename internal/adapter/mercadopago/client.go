package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// ErrPaymentNotFound indicates the provider has no payment with the requested id.
var ErrPaymentNotFound = errors.New("payment not found")

// UpstreamError represents a non successful answer from the provider.
type UpstreamError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e UpstreamError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("payment gateway status %d, retry after %s", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("payment gateway status %d", e.StatusCode)
}

// PixRequest describes a PIX charge for one order.
type PixRequest struct {
	OrderID     int64
	Amount      decimal.Decimal
	Description string
	PayerEmail  string
	PayerName   string
}

// Gateway exposes the subset of the Mercado Pago payments API the store relies on.
type Gateway interface {
	CreatePix(ctx context.Context, req PixRequest) (*model.PaymentIntent, error)
	GetPayment(ctx context.Context, id string) (*model.GatewayPayment, error)
}

// HTTPClient implements Gateway via the REST API.
type HTTPClient struct {
	baseURL         *url.URL
	accessToken     string
	notificationURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

type payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type createRequest struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	Payer             payer       `json:"payer"`
	ExternalReference string      `json:"external_reference"`
	NotificationURL   string      `json:"notification_url,omitempty"`
}

type paymentResponse struct {
	ID                 json.Number     `json:"id"`
	Status             string          `json:"status"`
	StatusDetail       string          `json:"status_detail"`
	ExternalReference  string          `json:"external_reference"`
	TransactionAmount  decimal.Decimal `json:"transaction_amount"`
	DateOfExpiration   string          `json:"date_of_expiration"`
	DateLastUpdated    string          `json:"date_last_updated"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// NewHTTPClient creates the provider client.
func NewHTTPClient(baseURL, accessToken, notificationURL string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("gateway access token is empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:         parsed,
		accessToken:     accessToken,
		notificationURL: notificationURL,
		logger:          logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// IdempotencyKey derives the provider idempotency key of an order so retries
// for the same order never create a second charge.
func IdempotencyKey(orderID int64) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("pixstore:order:"+strconv.FormatInt(orderID, 10))).String()
}

// CreatePix registers a PIX charge and returns the QR code data.
func (c *HTTPClient) CreatePix(ctx context.Context, in PixRequest) (*model.PaymentIntent, error) {
	body, err := json.Marshal(createRequest{
		TransactionAmount: json.Number(in.Amount.StringFixed(2)),
		Description:       in.Description,
		PaymentMethodID:   "pix",
		Payer:             payer{Email: in.PayerEmail, FirstName: in.PayerName},
		ExternalReference: strconv.FormatInt(in.OrderID, 10),
		NotificationURL:   c.notificationURL,
	})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", IdempotencyKey(in.OrderID))

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return DecodeIntent(raw)
}

// DecodeIntent reads a payment creation response, including one stored earlier.
func DecodeIntent(raw []byte) (*model.PaymentIntent, error) {
	var data paymentResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	if data.ID == "" {
		return nil, fmt.Errorf("decode payment: missing id")
	}

	tx := data.PointOfInteraction.TransactionData
	return &model.PaymentIntent{
		ID:           data.ID.String(),
		Status:       model.GatewayStatus(data.Status),
		QRCode:       tx.QRCode,
		QRCodeBase64: tx.QRCodeBase64,
		TicketURL:    tx.TicketURL,
		ExpiresAt:    parseTime(data.DateOfExpiration),
		Raw:          raw,
	}, nil
}

// GetPayment fetches the authoritative state of a payment.
func (c *HTTPClient) GetPayment(ctx context.Context, id string) (*model.GatewayPayment, error) {
	if id == "" {
		return nil, ErrPaymentNotFound
	}
	req, err := c.newRequest(ctx, http.MethodGet, path.Join("/v1/payments", url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var data paymentResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return &model.GatewayPayment{
		ID:                data.ID.String(),
		Status:            model.GatewayStatus(data.Status),
		StatusDetail:      data.StatusDetail,
		ExternalReference: data.ExternalReference,
		Amount:            data.TransactionAmount,
		UpdatedAt:         parseTime(data.DateLastUpdated),
	}, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	return req, nil
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, UpstreamError{StatusCode: resp.StatusCode, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		c.logger.Error("payment gateway request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, UpstreamError{StatusCode: resp.StatusCode}
	}
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	return &t
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
