package usecase

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/polkiloo/pixstore/internal/config"
)

const (
	downloadTokenBytes  = 32
	defaultPollInterval = 5 * time.Second
)

// Clock returns the current time.
type Clock func() time.Time

// TokenGenerator produces unguessable download tokens.
type TokenGenerator func() (string, error)

// Policy carries the delivery rules of the store.
type Policy struct {
	MaxDownloads  int
	DownloadTTL   time.Duration
	PublicBaseURL string
	PollInterval  time.Duration
}

// NewPolicy builds the policy from configuration.
func NewPolicy(cfg *config.Config) Policy {
	return Policy{
		MaxDownloads:  cfg.MaxDownloads,
		DownloadTTL:   cfg.DownloadTTL,
		PublicBaseURL: cfg.PublicBaseURL,
		PollInterval:  defaultPollInterval,
	}
}

// RedemptionURL returns the public link that redeems token.
func (p Policy) RedemptionURL(token string) string {
	return p.PublicBaseURL + "/download-file?token=" + url.QueryEscape(token)
}

// NewDownloadToken returns 32 random bytes encoded as unpadded base64url.
func NewDownloadToken() (string, error) {
	buf := make([]byte, downloadTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate download token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
