package usecase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
)

// MaxItemQuantity bounds the units of one product in a single order.
const MaxItemQuantity = 1000

// ValidateEmail performs the storefront's minimal address check.
func ValidateEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n") && strings.Count(email, "@") == 1
}

// normalizeCheckout trims customer fields and merges duplicate products.
// Items come back ordered by product id.
func normalizeCheckout(req *CheckoutRequest) ([]CheckoutItem, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	req.RequestID = strings.TrimSpace(req.RequestID)

	if req.CustomerName == "" {
		return nil, fmt.Errorf("customer name is required: %w", domainErrors.ErrInvalidRequest)
	}
	if !ValidateEmail(req.CustomerEmail) {
		return nil, fmt.Errorf("customer email is invalid: %w", domainErrors.ErrInvalidRequest)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("at least one item is required: %w", domainErrors.ErrInvalidRequest)
	}
	if req.TotalAmount != nil && req.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("total amount is negative: %w", domainErrors.ErrInvalidRequest)
	}

	merged := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return nil, fmt.Errorf("product id %d: %w", item.ProductID, domainErrors.ErrInvalidRequest)
		}
		if item.Quantity < 1 || item.Quantity > MaxItemQuantity {
			return nil, fmt.Errorf("quantity for product %d: %w", item.ProductID, domainErrors.ErrInvalidRequest)
		}
		merged[item.ProductID] += item.Quantity
		if merged[item.ProductID] > MaxItemQuantity {
			return nil, fmt.Errorf("quantity for product %d exceeds %d: %w", item.ProductID, MaxItemQuantity, domainErrors.ErrInvalidRequest)
		}
	}

	items := make([]CheckoutItem, 0, len(merged))
	for id, qty := range merged {
		items = append(items, CheckoutItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

// parseOrderID reads the external reference the gateway echoes back.
func parseOrderID(ref string) (int64, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
