// Package notify delivers download links to the customer once an order is approved.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// Delivery carries everything a customer needs to fetch a paid order.
type Delivery struct {
	OrderID       int64                      `json:"order_id"`
	CustomerName  string                     `json:"customer_name"`
	CustomerEmail string                     `json:"customer_email"`
	Downloads     []model.DownloadDescriptor `json:"downloads"`
}

// Notifier sends delivery notices.
type Notifier interface {
	NotifyDelivery(ctx context.Context, d Delivery) error
}

// LogNotifier writes notices to the application log. It is the default for
// deployments without a mail relay or topic.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyDelivery(ctx context.Context, d Delivery) error {
	n.logger.InfoContext(ctx, "delivery ready",
		slog.Int64("order_id", d.OrderID),
		slog.String("email", d.CustomerEmail),
		slog.Int("downloads", len(d.Downloads)),
	)
	return nil
}

func formatExpiry(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}
