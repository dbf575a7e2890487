package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewayStatus is the raw payment status reported by the PIX provider.
type GatewayStatus string

const (
	GatewayStatusPending     GatewayStatus = "pending"
	GatewayStatusApproved    GatewayStatus = "approved"
	GatewayStatusAuthorized  GatewayStatus = "authorized"
	GatewayStatusInProcess   GatewayStatus = "in_process"
	GatewayStatusInMediation GatewayStatus = "in_mediation"
	GatewayStatusRejected    GatewayStatus = "rejected"
	GatewayStatusCancelled   GatewayStatus = "cancelled"
	GatewayStatusRefunded    GatewayStatus = "refunded"
	GatewayStatusChargedBack GatewayStatus = "charged_back"
)

// OrderStatus maps the provider status onto the order lifecycle.
func (s GatewayStatus) OrderStatus() OrderStatus {
	switch s {
	case GatewayStatusApproved:
		return OrderStatusApproved
	case GatewayStatusRejected:
		return OrderStatusRejected
	case GatewayStatusCancelled, GatewayStatusRefunded, GatewayStatusChargedBack:
		return OrderStatusCancelled
	case GatewayStatusPending, GatewayStatusAuthorized, GatewayStatusInProcess, GatewayStatusInMediation:
		return OrderStatusPending
	default:
		return OrderStatusPending
	}
}

// PaymentIntent is the provider answer to a PIX creation request.
type PaymentIntent struct {
	ID           string
	Status       GatewayStatus
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
	ExpiresAt    *time.Time
	// Raw is the untouched provider response, forwarded to the storefront.
	Raw []byte
}

// GatewayPayment is the authoritative payment state fetched from the provider.
type GatewayPayment struct {
	ID                string
	Status            GatewayStatus
	StatusDetail      string
	ExternalReference string
	Amount            decimal.Decimal
	UpdatedAt         *time.Time
}
