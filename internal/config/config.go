package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/rl1809/procurement/internal/core/service"
)

const (
	CatalogYAML  = "yaml"
	CatalogMySQL = "mysql"

	SinkMySQL    = "mysql"
	SinkDynamoDB = "dynamodb"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	MySQLDSN  string
	RedisAddr string

	CatalogSource   string
	CatalogSeedPath string

	RFQSink            string
	RFQTable           string
	AWSRegion          string
	DynamoDBEndpoint   string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// OrderBudget overrides the seed's budget when set.
	OrderBudget *decimal.Decimal

	DiscoveryTimeout time.Duration
	DiscoveryLatency time.Duration
	DispatchTimeout  time.Duration
	OfferCacheTTL    time.Duration

	NotifyWorkers   int
	NotifyQueueSize int

	CORSOrigins []string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := &Config{
		HTTPPort:           getenvDefault("HTTP_PORT", ":8080"),
		GRPCPort:           getenvDefault("GRPC_PORT", ":50051"),
		MySQLDSN:           getenvDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/procurement?parseTime=true"),
		RedisAddr:          getenvDefault("REDIS_ADDR", "localhost:6379"),
		CatalogSource:      strings.ToLower(getenvDefault("CATALOG_SOURCE", CatalogYAML)),
		CatalogSeedPath:    getenvDefault("CATALOG_SEED_PATH", "data/catalog.yaml"),
		RFQSink:            strings.ToLower(getenvDefault("RFQ_SINK", SinkMySQL)),
		RFQTable:           getenvDefault("RFQ_TABLE", "rfq_documents"),
		AWSRegion:          getenvDefault("AWS_REGION", "us-east-1"),
		DynamoDBEndpoint:   os.Getenv("DYNAMODB_ENDPOINT"),
		AWSAccessKeyID:     getenvDefault("AWS_ACCESS_KEY_ID", "local"),
		AWSSecretAccessKey: getenvDefault("AWS_SECRET_ACCESS_KEY", "local"),
		CORSOrigins:        splitList(getenvDefault("CORS_ORIGINS", "*")),
	}

	switch cfg.CatalogSource {
	case CatalogYAML, CatalogMySQL:
	default:
		return nil, fmt.Errorf("CATALOG_SOURCE: unsupported value %q", cfg.CatalogSource)
	}
	switch cfg.RFQSink {
	case SinkMySQL, SinkDynamoDB:
	default:
		return nil, fmt.Errorf("RFQ_SINK: unsupported value %q", cfg.RFQSink)
	}

	if v := strings.TrimSpace(os.Getenv("ORDER_BUDGET")); v != "" {
		budget, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("ORDER_BUDGET: %w", err)
		}
		if budget.IsNegative() {
			return nil, fmt.Errorf("ORDER_BUDGET: must not be negative, got %s", budget)
		}
		cfg.OrderBudget = &budget
	}

	var err error
	if cfg.DiscoveryTimeout, err = durationEnv("DISCOVERY_TIMEOUT", service.DefaultDiscoveryTimeout); err != nil {
		return nil, err
	}
	if cfg.DiscoveryLatency, err = durationEnv("DISCOVERY_LATENCY", 800*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.DispatchTimeout, err = durationEnv("DISPATCH_TIMEOUT", service.DefaultDispatchTimeout); err != nil {
		return nil, err
	}
	if cfg.OfferCacheTTL, err = durationEnv("OFFER_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyWorkers, err = intEnv("NOTIFY_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.NotifyQueueSize, err = intEnv("NOTIFY_QUEUE_SIZE", 1000); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s: must be at least 1, got %d", key, n)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
