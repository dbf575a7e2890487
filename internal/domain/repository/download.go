package repository

import (
	"context"
	"time"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// DownloadRepository provides access to download grants.
type DownloadRepository interface {
	GetByToken(ctx context.Context, token string) (*model.DownloadGrant, error)
	ListByOrder(ctx context.Context, orderID int64) ([]model.DownloadGrant, error)
	// Consume increments the redemption count only when the grant is still usable at now.
	// It returns false when the guarded update matched no row.
	Consume(ctx context.Context, token string, now time.Time) (*model.DownloadGrant, bool, error)
}
