package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier e-mails the download links through a plain-auth relay.
type SMTPNotifier struct {
	host     string
	port     string
	username string
	password string
	send     sendMailFunc
}

func NewSMTPNotifier(host, port, username, password string) (*SMTPNotifier, error) {
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if port == "" {
		return nil, fmt.Errorf("SMTP_PORT not set")
	}
	if username == "" {
		return nil, fmt.Errorf("SMTP_USER not set")
	}
	return &SMTPNotifier{host: host, port: port, username: username, password: password, send: smtp.SendMail}, nil
}

func (n *SMTPNotifier) NotifyDelivery(ctx context.Context, d Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.CustomerEmail == "" {
		return fmt.Errorf("delivery for order %d has no recipient", d.OrderID)
	}

	addr := n.host + ":" + n.port
	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	if err := n.send(addr, auth, n.username, []string{d.CustomerEmail}, n.message(d)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) message(d Delivery) []byte {
	var body strings.Builder
	fmt.Fprintf(&body, "Olá %s,\r\n\r\nSeu pagamento do pedido #%d foi aprovado. Seus downloads:\r\n\r\n", d.CustomerName, d.OrderID)
	for _, item := range d.Downloads {
		fmt.Fprintf(&body, "- %s (%s): %s\r\n  %d downloads restantes, válido até %s\r\n",
			item.ProductName, item.Format, item.URL, item.Remaining, formatExpiry(item.ExpiresAt))
	}

	return []byte(
		"From: " + n.username + "\r\n" +
			"To: " + d.CustomerEmail + "\r\n" +
			fmt.Sprintf("Subject: Pedido #%d aprovado\r\n", d.OrderID) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body.String(),
	)
}
