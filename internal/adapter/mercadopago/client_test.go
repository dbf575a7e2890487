package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL, "TEST-token", "https://shop.example.com/webhook-mercadopago", time.Second, testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewHTTPClientValidatesInput(t *testing.T) {
	if _, err := NewHTTPClient("://bad-url", "tok", "", time.Second, testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPClient("/relative", "tok", "", time.Second, testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
	if _, err := NewHTTPClient("https://api.example.com", "", "", time.Second, testLogger()); err == nil {
		t.Fatal("expected error for empty token")
	}
	client, err := NewHTTPClient("https://api.example.com", "tok", "", 0, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", client.httpClient.Timeout)
	}
}

func TestCreatePix(t *testing.T) {
	var (
		gotBody map[string]any
		gotKey  string
		gotAuth string
	)
	const response = `{"id":123456789,"status":"pending","external_reference":"42","transaction_amount":99.9,
        "date_of_expiration":"2026-01-02T15:04:05.000-03:00",
        "point_of_interaction":{"transaction_data":{"qr_code":"000201pix","qr_code_base64":"iVBOR","ticket_url":"https://mp/ticket"}}}`

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("X-Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, response)
	})

	intent, err := client.CreatePix(context.Background(), PixRequest{
		OrderID:     42,
		Amount:      decimal.RequireFromString("99.9"),
		Description: "Pedido #42",
		PayerEmail:  "ana@example.com",
		PayerName:   "Ana",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if intent.ID != "123456789" || intent.Status != model.GatewayStatusPending {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if intent.QRCode != "000201pix" || intent.QRCodeBase64 != "iVBOR" || intent.TicketURL != "https://mp/ticket" {
		t.Fatalf("unexpected qr data: %+v", intent)
	}
	if intent.ExpiresAt == nil || intent.ExpiresAt.Year() != 2026 {
		t.Fatalf("expected expiration to be parsed, got %v", intent.ExpiresAt)
	}
	if string(intent.Raw) != response {
		t.Fatal("expected raw payload to be forwarded untouched")
	}
	if gotAuth != "Bearer TEST-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotKey != IdempotencyKey(42) {
		t.Fatalf("unexpected idempotency key %q", gotKey)
	}
	if gotBody["transaction_amount"] != 99.9 || gotBody["payment_method_id"] != "pix" || gotBody["external_reference"] != "42" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if gotBody["notification_url"] != "https://shop.example.com/webhook-mercadopago" {
		t.Fatalf("unexpected notification url: %v", gotBody["notification_url"])
	}
	payer, _ := gotBody["payer"].(map[string]any)
	if payer["email"] != "ana@example.com" || payer["first_name"] != "Ana" {
		t.Fatalf("unexpected payer: %v", payer)
	}
}

func TestCreatePixErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "upstream failure",
			status: http.StatusBadRequest,
			body:   `{"message":"invalid"}`,
			check: func(t *testing.T, err error) {
				var upstream UpstreamError
				if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusBadRequest {
					t.Fatalf("expected upstream 400, got %v", err)
				}
			},
		},
		{
			name:   "missing id",
			status: http.StatusCreated,
			body:   `{"status":"pending"}`,
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Fatal("expected decode error")
				}
			},
		},
		{
			name:   "bad json",
			status: http.StatusCreated,
			body:   `{`,
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Fatal("expected decode error")
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := client.CreatePix(context.Background(), PixRequest{OrderID: 1, Amount: decimal.NewFromInt(1)})
			tc.check(t, err)
		})
	}
}

func TestGetPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/123":
			_, _ = io.WriteString(w, `{"id":"123","status":"approved","status_detail":"accredited","external_reference":"42","transaction_amount":99.90,"date_last_updated":"2026-01-02T15:04:05Z"}`)
		case "/v1/payments/404":
			w.WriteHeader(http.StatusNotFound)
		case "/v1/payments/429":
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})

	payment, err := client.GetPayment(context.Background(), "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.ID != "123" || payment.Status != model.GatewayStatusApproved || payment.ExternalReference != "42" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if !payment.Amount.Equal(decimal.RequireFromString("99.90")) || payment.StatusDetail != "accredited" {
		t.Fatalf("unexpected amount or detail: %+v", payment)
	}
	if payment.UpdatedAt == nil {
		t.Fatal("expected update time")
	}

	if _, err := client.GetPayment(context.Background(), "404"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.GetPayment(context.Background(), ""); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected not found for empty id, got %v", err)
	}

	_, err = client.GetPayment(context.Background(), "429")
	var upstream UpstreamError
	if !errors.As(err, &upstream) || upstream.RetryAfter != 7*time.Second {
		t.Fatalf("expected retry after 7s, got %v", err)
	}

	if _, err := client.GetPayment(context.Background(), "500"); !errors.As(err, &upstream) || upstream.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected upstream 500, got %v", err)
	}
}

func TestGetPaymentLogsErrorResponses(t *testing.T) {
	called := make(chan struct{}, 1)
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey && a.Value.Any() == slog.LevelError {
			select {
			case called <- struct{}{}:
			default:
			}
		}
		return a
	}})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "tok", "", time.Second, slog.New(handler))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if _, err := client.GetPayment(context.Background(), "1"); err == nil {
		t.Fatal("expected error from server")
	}

	select {
	case <-called:
	default:
		t.Fatal("expected error log to be written")
	}
}

func TestIdempotencyKeyIsStable(t *testing.T) {
	if IdempotencyKey(1) != IdempotencyKey(1) {
		t.Fatal("expected deterministic key")
	}
	if IdempotencyKey(1) == IdempotencyKey(2) {
		t.Fatal("expected distinct keys per order")
	}
}

func TestParseRetryAfter(t *testing.T) {
	httpTime := time.Now().Add(2 * time.Second).UTC().Format(http.TimeFormat)

	cases := []struct {
		name   string
		header string
		min    time.Duration
		max    time.Duration
	}{
		{name: "empty", header: "", min: 5 * time.Second, max: 5 * time.Second},
		{name: "seconds", header: "3", min: 3 * time.Second, max: 3 * time.Second},
		{name: "http date", header: httpTime, min: 0, max: 3 * time.Second},
		{name: "garbage", header: "soon", min: 5 * time.Second, max: 5 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseRetryAfter(tc.header)
			if got < tc.min || got > tc.max {
				t.Fatalf("expected %v..%v, got %v", tc.min, tc.max, got)
			}
		})
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	if (UpstreamError{StatusCode: 500}).Error() != "payment gateway status 500" {
		t.Fatal("unexpected message")
	}
	if (UpstreamError{StatusCode: 429, RetryAfter: time.Second}).Error() != "payment gateway status 429, retry after 1s" {
		t.Fatal("unexpected retry message")
	}
}

func TestDecodeIntent(t *testing.T) {
	raw := []byte(`{"id":42,"status":"pending","point_of_interaction":{"transaction_data":{"qr_code":"000201","ticket_url":"https://mp/t"}}}`)
	intent, err := DecodeIntent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if intent.ID != "42" || intent.QRCode != "000201" || intent.TicketURL != "https://mp/t" {
		t.Fatalf("unexpected intent: %+v", intent)
	}

	if _, err := DecodeIntent([]byte(`{"status":"pending"}`)); err == nil {
		t.Fatal("expected error for payload without id")
	}
	if _, err := DecodeIntent(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
