package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product of the storefront cart.
type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreatePaymentRequest describes a checkout.
type CreatePaymentRequest struct {
	RequestID     string           `json:"request_id"`
	CustomerName  string           `json:"customer_name"`
	CustomerEmail string           `json:"customer_email"`
	Items         []CartItem       `json:"items"`
	Total         *decimal.Decimal `json:"total"`
}

// CreatePaymentResponse carries the PIX intent the storefront renders.
type CreatePaymentResponse struct {
	PaymentID    string          `json:"payment_id"`
	OrderID      int64           `json:"order_id"`
	Status       string          `json:"status"`
	TotalAmount  string          `json:"total_amount"`
	QRCode       string          `json:"qr_code,omitempty"`
	QRCodeBase64 string          `json:"qr_code_base64,omitempty"`
	TicketURL    string          `json:"ticket_url,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	Payment      json.RawMessage `json:"payment,omitempty"`
}

// PaymentStatusResponse is the polling answer.
type PaymentStatusResponse struct {
	PaymentID           string     `json:"payment_id"`
	OrderID             *int64     `json:"order_id,omitempty"`
	Status              string     `json:"status"`
	GatewayStatus       string     `json:"gateway_status,omitempty"`
	TotalAmount         string     `json:"total_amount"`
	Terminal            bool       `json:"terminal"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
	Source              string     `json:"source"`
	PollIntervalSeconds int        `json:"poll_interval_seconds,omitempty"`
}

// DownloadResponse describes one redeemable product.
type DownloadResponse struct {
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Format      string    `json:"format"`
	URL         string    `json:"url"`
	Remaining   int       `json:"remaining"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DownloadsResponse lists the downloads of an approved order.
type DownloadsResponse struct {
	PaymentID string             `json:"payment_id"`
	OrderID   int64              `json:"order_id"`
	Downloads []DownloadResponse `json:"downloads"`
}
