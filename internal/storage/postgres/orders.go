package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
	"github.com/polkiloo/pixstore/internal/domain/repository"
)

const orderColumns = `id, customer_id, total_amount::text, status, payment_ref, payment_method, payment_payload, idempotency_key, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o     model.Order
		total string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &total, &o.Status, &o.PaymentRef, &o.PaymentMethod, &o.PaymentPayload, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	o.TotalAmount = amount
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *orderRepository) CreateWithItems(ctx context.Context, in repository.NewOrder) (*model.Order, error) {
	const upsertCustomer = `INSERT INTO customers (name, email) VALUES ($1, $2)
                            ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
                            RETURNING id`
	const insertOrder = `INSERT INTO orders (customer_id, total_amount, status, payment_method, idempotency_key)
                         VALUES ($1, $2::numeric, $3, $4, $5)
                         RETURNING id, created_at, updated_at`
	const insertItem = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
                        VALUES ($1, $2, $3, $4::numeric)`

	if len(in.Items) == 0 {
		return nil, domainErrors.ErrInvalidRequest
	}
	amount, err := decimal.NewFromString(in.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}

	order := model.Order{
		TotalAmount:    amount,
		Status:         model.OrderStatusPending,
		PaymentMethod:  in.PaymentMethod,
		IdempotencyKey: in.IdempotencyKey,
	}

	err = r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertCustomer, in.Customer.Name, in.Customer.Email).Scan(&order.CustomerID); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}

		err := tx.QueryRow(ctx, insertOrder, order.CustomerID, in.TotalAmount, model.OrderStatusPending, in.PaymentMethod, in.IdempotencyKey).
			Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domainErrors.ErrAlreadyExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range in.Items {
			if _, err := tx.Exec(ctx, insertItem, order.ID, item.ProductID, item.Quantity, item.UnitPrice.StringFixed(2)); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *orderRepository) GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_ref=$1`, ref)
}

func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key=$1`, key)
}

func (r *orderRepository) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	const query = `SELECT id, name, email, created_at FROM customers WHERE id=$1`
	var c model.Customer
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *orderRepository) Items(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	const query = `SELECT id, order_id, product_id, quantity, unit_price::text
                   FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.OrderItem
	for rows.Next() {
		var (
			item  model.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &price); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) AttachPayment(ctx context.Context, orderID int64, ref, method string, payload []byte) error {
	const query = `UPDATE orders SET payment_ref=$1, payment_method=$2, payment_payload=$3, updated_at=NOW()
                   WHERE id=$4 AND (payment_ref IS NULL OR payment_ref=$1)`
	tag, err := r.storage.pool.Exec(ctx, query, ref, method, payload, orderID)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attach payment %s to order %d: %w", ref, orderID, domainErrors.ErrAlreadyExists)
	}
	return nil
}

func (r *orderRepository) ApplyStatus(ctx context.Context, orderID int64, target model.OrderStatus, grants []model.GrantRequest) (bool, error) {
	if !model.OrderStatusPending.CanTransitionTo(target) {
		return false, fmt.Errorf("apply status %q: %w", target, domainErrors.ErrInvalidRequest)
	}

	const updateQuery = `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status='pending'`
	var changed bool
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateQuery, target, orderID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		changed = true
		if target != model.OrderStatusApproved {
			return nil
		}
		_, err = insertGrantsTx(ctx, tx, orderID, grants)
		return err
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *orderRepository) EnsureGrants(ctx context.Context, orderID int64, grants []model.GrantRequest) (int, error) {
	const lockOrder = `SELECT status FROM orders WHERE id=$1 FOR UPDATE`
	var created int
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var status model.OrderStatus
		if err := tx.QueryRow(ctx, lockOrder, orderID).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		if status != model.OrderStatusApproved {
			return domainErrors.ErrOrderNotApproved
		}
		n, err := insertGrantsTx(ctx, tx, orderID, grants)
		created = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func insertGrantsTx(ctx context.Context, tx pgx.Tx, orderID int64, grants []model.GrantRequest) (int, error) {
	const insertGrant = `INSERT INTO downloads (order_id, product_id, download_token, max_downloads, expires_at)
                         VALUES ($1, $2, $3, $4, $5)
                         ON CONFLICT (order_id, product_id) DO NOTHING`
	var created int
	for _, g := range grants {
		tag, err := tx.Exec(ctx, insertGrant, orderID, g.ProductID, g.Token, g.MaxDownloads, g.ExpiresAt)
		if err != nil {
			return 0, fmt.Errorf("insert grant for product %d: %w", g.ProductID, err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

func (r *orderRepository) SelectPendingForReconcile(ctx context.Context, limit int, checkedBefore time.Time) ([]model.Order, error) {
	const selectQuery = `SELECT ` + orderColumns + `
                         FROM orders
                         WHERE status = 'pending' AND payment_ref IS NOT NULL
                           AND (last_checked_at IS NULL OR last_checked_at < $1)
                         ORDER BY created_at
                         LIMIT $2
                         FOR UPDATE SKIP LOCKED`
	const touchQuery = `UPDATE orders SET last_checked_at=NOW() WHERE id = ANY($1)`

	var orders []model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, checkedBefore, limit)
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				rows.Close()
				return err
			}
			orders = append(orders, *o)
			ids = append(ids, o.ID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, touchQuery, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
