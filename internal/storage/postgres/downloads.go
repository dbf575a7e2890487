package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/domain/model"
)

const grantColumns = `id, order_id, product_id, download_token, download_count, max_downloads, expires_at, created_at`

func scanGrant(row rowScanner) (*model.DownloadGrant, error) {
	var g model.DownloadGrant
	if err := row.Scan(&g.ID, &g.OrderID, &g.ProductID, &g.Token, &g.DownloadCount, &g.MaxDownloads, &g.ExpiresAt, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *downloadRepository) GetByToken(ctx context.Context, token string) (*model.DownloadGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM downloads WHERE download_token=$1`
	grant, err := scanGrant(r.storage.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return grant, nil
}

func (r *downloadRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.DownloadGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM downloads WHERE order_id=$1 ORDER BY product_id`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.DownloadGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *downloadRepository) Consume(ctx context.Context, token string, now time.Time) (*model.DownloadGrant, bool, error) {
	// Single guarded statement: concurrent redeemers serialize on the row lock and
	// re-evaluate the predicate, so the counter never passes max_downloads.
	const query = `UPDATE downloads d
                   SET download_count = d.download_count + 1
                   FROM orders o
                   WHERE d.download_token = $1
                     AND o.id = d.order_id
                     AND o.status = 'approved'
                     AND d.download_count < d.max_downloads
                     AND d.expires_at > $2
                   RETURNING d.id, d.order_id, d.product_id, d.download_token, d.download_count, d.max_downloads, d.expires_at, d.created_at`

	grant, err := scanGrant(r.storage.pool.QueryRow(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return grant, true, nil
}
