package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderStatusTransitions(t *testing.T) {
	all := []OrderStatus{OrderStatusPending, OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransitionTo(to)
			want := from == OrderStatusPending && to != OrderStatusPending
			if got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}

	if OrderStatus("shipped").CanTransitionTo(OrderStatusApproved) {
		t.Fatal("unknown status must not transition")
	}
	if OrderStatusPending.CanTransitionTo("shipped") {
		t.Fatal("transition to unknown status must be rejected")
	}
}

func TestOrderStatusTerminalAndValid(t *testing.T) {
	cases := []struct {
		status   OrderStatus
		terminal bool
		valid    bool
	}{
		{OrderStatusPending, false, true},
		{OrderStatusApproved, true, true},
		{OrderStatusRejected, true, true},
		{OrderStatusCancelled, true, true},
		{OrderStatus("NEW"), false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			if tc.status.Terminal() != tc.terminal {
				t.Fatalf("terminal: expected %v", tc.terminal)
			}
			if tc.status.Valid() != tc.valid {
				t.Fatalf("valid: expected %v", tc.valid)
			}
		})
	}
}

func TestGatewayStatusMapping(t *testing.T) {
	cases := map[GatewayStatus]OrderStatus{
		GatewayStatusApproved:    OrderStatusApproved,
		GatewayStatusRejected:    OrderStatusRejected,
		GatewayStatusCancelled:   OrderStatusCancelled,
		GatewayStatusRefunded:    OrderStatusCancelled,
		GatewayStatusChargedBack: OrderStatusCancelled,
		GatewayStatusPending:     OrderStatusPending,
		GatewayStatusInProcess:   OrderStatusPending,
		GatewayStatusInMediation: OrderStatusPending,
		GatewayStatusAuthorized:  OrderStatusPending,
		GatewayStatus("weird"):   OrderStatusPending,
	}
	for in, want := range cases {
		if got := in.OrderStatus(); got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
}

func TestDownloadGrantChecks(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	grant := DownloadGrant{DownloadCount: 1, MaxDownloads: 3, ExpiresAt: now.Add(time.Hour)}

	if grant.Expired(now) {
		t.Fatal("grant should not be expired")
	}
	if !grant.Expired(now.Add(time.Hour)) {
		t.Fatal("grant must be expired exactly at expiry")
	}
	if grant.Remaining() != 2 || grant.Exhausted() {
		t.Fatalf("unexpected remaining %d", grant.Remaining())
	}

	grant.DownloadCount = 3
	if !grant.Exhausted() || grant.Remaining() != 0 {
		t.Fatal("grant should be exhausted")
	}
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: decimal.RequireFromString("33.30")}
	if !item.Subtotal().Equal(decimal.RequireFromString("99.90")) {
		t.Fatalf("unexpected subtotal %s", item.Subtotal())
	}
}

func TestOrderHasPayment(t *testing.T) {
	var order Order
	if order.HasPayment() {
		t.Fatal("expected no payment")
	}
	empty := ""
	order.PaymentRef = &empty
	if order.HasPayment() {
		t.Fatal("empty reference is not a payment")
	}
	ref := "123"
	order.PaymentRef = &ref
	if !order.HasPayment() {
		t.Fatal("expected payment")
	}
}
