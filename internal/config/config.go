package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress    string
	DatabaseURI   string
	PublicBaseURL string
	LogLevel      string

	GatewayBaseURL     string
	GatewayAccessToken string
	GatewayTimeout     time.Duration
	NotificationURL    string
	WebhookSecret      string

	MaxDownloads int
	DownloadTTL  time.Duration
	AssetURLTTL  time.Duration
	AWSRegion    string

	ReconcileInterval time.Duration
	ReconcileBatch    int
	WorkerPoolSize    int
	ShutdownTimeout   time.Duration

	ProductCacheTTL time.Duration
	RedisURL        string

	AdminKeyHash string
	RedeemRPS    float64
	RedeemBurst  int

	Notifier    string
	SMTPHost    string
	SMTPPort    string
	SMTPUser    string
	SMTPPass    string
	SNSTopicARN string
}

const (
	defaultRunAddress        = ":8080"
	defaultGatewayBaseURL    = "https://api.mercadopago.com"
	defaultGatewayTimeout    = 30 * time.Second
	defaultMaxDownloads      = 3
	defaultDownloadTTL       = 7 * 24 * time.Hour
	defaultAssetURLTTL       = 15 * time.Minute
	defaultReconcileInterval = time.Minute
	defaultReconcileBatch    = 32
	defaultWorkerPoolSize    = 4
	defaultShutdownTimeout   = 10 * time.Second
	defaultProductCacheTTL   = 5 * time.Minute
	defaultRedeemRPS         = 2
	defaultRedeemBurst       = 10
	defaultNotifier          = "log"
	defaultLogLevel          = "info"
	defaultAWSRegion         = "us-east-1"
)

// Load parses configuration from an optional .env file, environment variables and flags.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		PublicBaseURL:      getString(lookup, "PUBLIC_BASE_URL", ""),
		LogLevel:           getString(lookup, "LOG_LEVEL", defaultLogLevel),
		GatewayBaseURL:     getString(lookup, "MP_BASE_URL", defaultGatewayBaseURL),
		GatewayAccessToken: getString(lookup, "MP_ACCESS_TOKEN", ""),
		GatewayTimeout:     getDuration(lookup, "MP_TIMEOUT", defaultGatewayTimeout),
		NotificationURL:    getString(lookup, "MP_NOTIFICATION_URL", ""),
		WebhookSecret:      getString(lookup, "MP_WEBHOOK_SECRET", ""),
		MaxDownloads:       getInt(lookup, "MAX_DOWNLOADS", defaultMaxDownloads),
		DownloadTTL:        getDuration(lookup, "DOWNLOAD_TTL", defaultDownloadTTL),
		AssetURLTTL:        getDuration(lookup, "ASSET_URL_TTL", defaultAssetURLTTL),
		AWSRegion:          getString(lookup, "AWS_REGION", defaultAWSRegion),
		ReconcileInterval:  getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		ReconcileBatch:     getInt(lookup, "RECONCILE_BATCH", defaultReconcileBatch),
		WorkerPoolSize:     getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		ProductCacheTTL:    getDuration(lookup, "PRODUCT_CACHE_TTL", defaultProductCacheTTL),
		RedisURL:           getString(lookup, "REDIS_URL", ""),
		AdminKeyHash:       getString(lookup, "ADMIN_KEY_HASH", ""),
		RedeemRPS:          getFloat(lookup, "REDEEM_RPS", defaultRedeemRPS),
		RedeemBurst:        getInt(lookup, "REDEEM_BURST", defaultRedeemBurst),
		Notifier:           getString(lookup, "NOTIFIER", defaultNotifier),
		SMTPHost:           getString(lookup, "SMTP_HOST", ""),
		SMTPPort:           getString(lookup, "SMTP_PORT", "587"),
		SMTPUser:           getString(lookup, "SMTP_USER", ""),
		SMTPPass:           getString(lookup, "SMTP_PASS", ""),
		SNSTopicARN:        getString(lookup, "SNS_TOPIC_ARN", ""),
	}

	fs := flag.NewFlagSet("pixstore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		downloadTTLStr       = cfg.DownloadTTL.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
		gatewayTimeoutStr    = cfg.GatewayTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.PublicBaseURL, "public-url", cfg.PublicBaseURL, "Public base URL used in download links and webhooks")
	fs.StringVar(&cfg.GatewayBaseURL, "mp-url", cfg.GatewayBaseURL, "Mercado Pago API base URL")
	fs.StringVar(&gatewayTimeoutStr, "mp-timeout", gatewayTimeoutStr, "Timeout for payment gateway calls")
	fs.IntVar(&cfg.MaxDownloads, "max-downloads", cfg.MaxDownloads, "Redemptions allowed per download grant")
	fs.StringVar(&downloadTTLStr, "download-ttl", downloadTTLStr, "Lifetime of a download grant")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between reconciliation sweeps, 0 disables")
	fs.IntVar(&cfg.ReconcileBatch, "reconcile-batch", cfg.ReconcileBatch, "Maximum orders per reconciliation sweep")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconciliation workers")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.Notifier, "notifier", cfg.Notifier, "Delivery notifier: log, smtp or sns")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.GatewayTimeout, err = time.ParseDuration(gatewayTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid gateway timeout: %w", err)
	}
	if cfg.DownloadTTL, err = time.ParseDuration(downloadTTLStr); err != nil {
		return nil, fmt.Errorf("invalid download ttl: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if tokenFile, ok := lookup("MP_ACCESS_TOKEN_FILE"); ok && tokenFile != "" {
		content, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read access token file: %w", err)
		}
		cfg.GatewayAccessToken = strings.TrimSpace(string(content))
	}

	if cfg.MaxDownloads <= 0 {
		cfg.MaxDownloads = defaultMaxDownloads
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = defaultDownloadTTL
	}
	if cfg.AssetURLTTL <= 0 {
		cfg.AssetURLTTL = defaultAssetURLTTL
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.ReconcileInterval < 0 {
		cfg.ReconcileInterval = 0
	}
	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.ProductCacheTTL <= 0 {
		cfg.ProductCacheTTL = defaultProductCacheTTL
	}
	if cfg.RedeemRPS <= 0 {
		cfg.RedeemRPS = defaultRedeemRPS
	}
	if cfg.RedeemBurst <= 0 {
		cfg.RedeemBurst = defaultRedeemBurst
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.NotificationURL == "" && cfg.PublicBaseURL != "" {
		cfg.NotificationURL = cfg.PublicBaseURL + "/webhook-mercadopago"
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.GatewayAccessToken == "" {
		return nil, fmt.Errorf("payment gateway access token must be provided")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("public base URL must be provided")
	}

	switch cfg.Notifier {
	case "log":
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPUser == "" {
			return nil, fmt.Errorf("smtp notifier requires SMTP_HOST and SMTP_USER")
		}
	case "sns":
		if cfg.SNSTopicARN == "" {
			return nil, fmt.Errorf("sns notifier requires SNS_TOPIC_ARN")
		}
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
