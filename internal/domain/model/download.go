package model

import "time"

// DownloadGrant is a consumable credential for one product of an approved order.
type DownloadGrant struct {
	ID            int64
	OrderID       int64
	ProductID     int64
	Token         string
	DownloadCount int
	MaxDownloads  int
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Remaining returns how many redemptions are left.
func (g DownloadGrant) Remaining() int {
	if g.DownloadCount >= g.MaxDownloads {
		return 0
	}
	return g.MaxDownloads - g.DownloadCount
}

// Expired reports whether the grant can no longer be redeemed at now.
func (g DownloadGrant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// Exhausted reports whether the redemption ceiling was reached.
func (g DownloadGrant) Exhausted() bool {
	return g.DownloadCount >= g.MaxDownloads
}

// GrantRequest describes a grant to provision for an order item.
type GrantRequest struct {
	ProductID    int64
	Token        string
	MaxDownloads int
	ExpiresAt    time.Time
}

// DownloadDescriptor is the user facing view of a grant.
type DownloadDescriptor struct {
	ProductID   int64
	ProductName string
	Format      string
	URL         string
	Remaining   int
	ExpiresAt   time.Time
}
