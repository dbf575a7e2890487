package test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/domain/repository"
)

// MemoryStore is an in-memory implementation of every repository. All
// mutations run under one mutex so guarded updates are atomic like their SQL
// counterparts.
type MemoryStore struct {
	mu sync.Mutex

	customers   map[int64]model.Customer
	byEmail     map[string]int64
	orders      map[int64]*model.Order
	items       map[int64][]model.OrderItem
	grants      map[string]*model.DownloadGrant
	products    map[int64]model.Product
	lastChecked map[int64]time.Time

	nextCustomer int64
	nextOrder    int64
	nextItem     int64
	nextGrant    int64

	// ApplyStatusErr fails ApplyStatus before any change when set.
	ApplyStatusErr error

	productQueries int32
	consumeCalls   int32
}

var _ repository.Factory = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:   make(map[int64]model.Customer),
		byEmail:     make(map[string]int64),
		orders:      make(map[int64]*model.Order),
		items:       make(map[int64][]model.OrderItem),
		grants:      make(map[string]*model.DownloadGrant),
		products:    make(map[int64]model.Product),
		lastChecked: make(map[int64]time.Time),
	}
}

// Orders returns the order repository view.
func (s *MemoryStore) Orders() repository.OrderRepository { return memoryOrders{s} }

// Downloads returns the download repository view.
func (s *MemoryStore) Downloads() repository.DownloadRepository { return memoryDownloads{s} }

// Products returns the product repository view.
func (s *MemoryStore) Products() repository.ProductRepository { return memoryProducts{s} }

// AddProduct seeds the catalog.
func (s *MemoryStore) AddProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// RemoveProduct deletes a catalog entry.
func (s *MemoryStore) RemoveProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// ProductQueries reports how many catalog reads reached the store.
func (s *MemoryStore) ProductQueries() int { return int(atomic.LoadInt32(&s.productQueries)) }

// ConsumeCalls reports how many guarded increments were attempted.
func (s *MemoryStore) ConsumeCalls() int { return int(atomic.LoadInt32(&s.consumeCalls)) }

// Order returns a copy of the stored order.
func (s *MemoryStore) Order(id int64) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return *o, true
}

// SetStatus forces an order status, bypassing the lifecycle rules.
func (s *MemoryStore) SetStatus(id int64, status model.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		o.Status = status
	}
}

// Grants returns copies of the order's grants ordered by product.
func (s *MemoryStore) Grants(orderID int64) []model.DownloadGrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grantsLocked(orderID)
}

// DeleteGrant drops a grant to simulate a partially provisioned order.
func (s *MemoryStore) DeleteGrant(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, token)
}

// ExpireGrant moves a grant's expiry.
func (s *MemoryStore) ExpireGrant(token string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.grants[token]; ok {
		g.ExpiresAt = at
	}
}

func (s *MemoryStore) grantsLocked(orderID int64) []model.DownloadGrant {
	var result []model.DownloadGrant
	for _, g := range s.grants {
		if g.OrderID == orderID {
			result = append(result, *g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result
}

func (s *MemoryStore) insertGrantsLocked(orderID int64, grants []model.GrantRequest) int {
	existing := make(map[int64]struct{})
	for _, g := range s.grants {
		if g.OrderID == orderID {
			existing[g.ProductID] = struct{}{}
		}
	}
	created := 0
	for _, req := range grants {
		if _, ok := existing[req.ProductID]; ok {
			continue
		}
		if _, ok := s.grants[req.Token]; ok {
			continue
		}
		s.nextGrant++
		s.grants[req.Token] = &model.DownloadGrant{
			ID:           s.nextGrant,
			OrderID:      orderID,
			ProductID:    req.ProductID,
			Token:        req.Token,
			MaxDownloads: req.MaxDownloads,
			ExpiresAt:    req.ExpiresAt,
			CreatedAt:    time.Now(),
		}
		existing[req.ProductID] = struct{}{}
		created++
	}
	return created
}

type memoryOrders struct{ s *MemoryStore }

func (r memoryOrders) CreateWithItems(_ context.Context, in repository.NewOrder) (*model.Order, error) {
	s := r.s
	if len(in.Items) == 0 {
		return nil, domainErrors.ErrInvalidRequest
	}
	total, err := decimal.NewFromString(in.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.IdempotencyKey != nil {
		for _, o := range s.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == *in.IdempotencyKey {
				return nil, domainErrors.ErrAlreadyExists
			}
		}
	}

	customerID, ok := s.byEmail[in.Customer.Email]
	if !ok {
		s.nextCustomer++
		customerID = s.nextCustomer
		s.byEmail[in.Customer.Email] = customerID
		s.customers[customerID] = model.Customer{ID: customerID, Name: in.Customer.Name, Email: in.Customer.Email, CreatedAt: time.Now()}
	}

	now := time.Now()
	s.nextOrder++
	order := &model.Order{
		ID:             s.nextOrder,
		CustomerID:     customerID,
		TotalAmount:    total,
		Status:         model.OrderStatusPending,
		PaymentMethod:  in.PaymentMethod,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.orders[order.ID] = order

	items := make([]model.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		s.nextItem++
		item.ID = s.nextItem
		item.OrderID = order.ID
		items = append(items, item)
	}
	s.items[order.ID] = items

	out := *order
	return &out, nil
}

func (r memoryOrders) find(match func(*model.Order) bool) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if match(o) {
			out := *o
			return &out, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r memoryOrders) GetByID(_ context.Context, id int64) (*model.Order, error) {
	return r.find(func(o *model.Order) bool { return o.ID == id })
}

func (r memoryOrders) GetByPaymentRef(_ context.Context, ref string) (*model.Order, error) {
	return r.find(func(o *model.Order) bool { return o.PaymentRef != nil && *o.PaymentRef == ref })
}

func (r memoryOrders) GetByIdempotencyKey(_ context.Context, key string) (*model.Order, error) {
	return r.find(func(o *model.Order) bool { return o.IdempotencyKey != nil && *o.IdempotencyKey == key })
}

func (r memoryOrders) GetCustomer(_ context.Context, id int64) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &c, nil
}

func (r memoryOrders) Items(_ context.Context, orderID int64) ([]model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]model.OrderItem(nil), r.s.items[orderID]...), nil
}

func (r memoryOrders) AttachPayment(_ context.Context, orderID int64, ref, method string, payload []byte) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range s.orders {
		if id != orderID && o.PaymentRef != nil && *o.PaymentRef == ref {
			return domainErrors.ErrAlreadyExists
		}
	}
	o, ok := s.orders[orderID]
	if !ok || (o.PaymentRef != nil && *o.PaymentRef != ref) {
		return fmt.Errorf("attach payment %s to order %d: %w", ref, orderID, domainErrors.ErrAlreadyExists)
	}
	o.PaymentRef = &ref
	o.PaymentMethod = method
	o.PaymentPayload = append([]byte(nil), payload...)
	o.UpdatedAt = time.Now()
	return nil
}

func (r memoryOrders) ApplyStatus(_ context.Context, orderID int64, target model.OrderStatus, grants []model.GrantRequest) (bool, error) {
	if !model.OrderStatusPending.CanTransitionTo(target) {
		return false, fmt.Errorf("apply status %q: %w", target, domainErrors.ErrInvalidRequest)
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ApplyStatusErr != nil {
		return false, s.ApplyStatusErr
	}
	o, ok := s.orders[orderID]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	if target == model.OrderStatusApproved {
		s.insertGrantsLocked(orderID, grants)
	}
	return true, nil
}

func (r memoryOrders) EnsureGrants(_ context.Context, orderID int64, grants []model.GrantRequest) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	if o.Status != model.OrderStatusApproved {
		return 0, domainErrors.ErrOrderNotApproved
	}
	return s.insertGrantsLocked(orderID, grants), nil
}

func (r memoryOrders) SelectPendingForReconcile(_ context.Context, limit int, checkedBefore time.Time) ([]model.Order, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Order
	for _, o := range s.orders {
		if o.Status != model.OrderStatusPending || !o.HasPayment() {
			continue
		}
		if last, ok := s.lastChecked[o.ID]; ok && !last.Before(checkedBefore) {
			continue
		}
		result = append(result, *o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	now := time.Now()
	for _, o := range result {
		s.lastChecked[o.ID] = now
	}
	return result, nil
}

type memoryDownloads struct{ s *MemoryStore }

func (r memoryDownloads) GetByToken(_ context.Context, token string) (*model.DownloadGrant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.grants[token]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (r memoryDownloads) ListByOrder(_ context.Context, orderID int64) ([]model.DownloadGrant, error) {
	return r.s.Grants(orderID), nil
}

func (r memoryDownloads) Consume(_ context.Context, token string, now time.Time) (*model.DownloadGrant, bool, error) {
	s := r.s
	atomic.AddInt32(&s.consumeCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[token]
	if !ok {
		return nil, false, nil
	}
	o, ok := s.orders[g.OrderID]
	if !ok || o.Status != model.OrderStatusApproved || g.Expired(now) || g.Exhausted() {
		return nil, false, nil
	}
	g.DownloadCount++
	out := *g
	return &out, true, nil
}

type memoryProducts struct{ s *MemoryStore }

func (r memoryProducts) GetByID(_ context.Context, id int64) (*model.Product, error) {
	atomic.AddInt32(&r.s.productQueries, 1)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domainErrors.ErrProductNotFound
	}
	return &p, nil
}

func (r memoryProducts) GetByIDs(_ context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	atomic.AddInt32(&r.s.productQueries, 1)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
