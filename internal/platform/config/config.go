package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // ORG_TIMEZONE must resolve on minimal images

	"github.com/joho/godotenv"
)

// Config is the full process configuration. FromEnv builds it so main stays lean.
type Config struct {
	Server     Server
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	SMTP       SMTPConfig
	Attendance Attendance
	Notify     Notify
	RateLimit  RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration
	// TrustedProxies is the raw comma-separated CIDR list for X-Forwarded-For.
	TrustedProxies string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers     string
	NotifyTopic string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// TieBreak selects among several permitted units whose fences contain the device.
type TieBreak string

const (
	TieBreakListOrder TieBreak = "list_order"
	TieBreakNearest   TieBreak = "nearest"
)

// Attendance holds the clock-event policy knobs.
type Attendance struct {
	Location             *time.Location
	UniversalCodePattern string
	TieBreak             TieBreak
	DuplicateWindow      time.Duration
	EvidenceMaxBytes     int64
	EvidenceDir          string
	// EvidenceBucketURL takes precedence over EvidenceDir (file://, mem://).
	EvidenceBucketURL string
	ReceiptSigningKey string
}

type Notify struct {
	QueueSize int
	Workers   int
}

// RateLimit is the per-client-IP budget for the attendance endpoints. Kiosks
// put many employees behind one IP, so the default is generous.
type RateLimit struct {
	PerWindow int
	Window    time.Duration
}

const (
	DefaultTimezone             = "America/Sao_Paulo"
	DefaultUniversalCodePattern = `^KL-UNIVERSAL(-[A-Z0-9]+)?$`
	DefaultDuplicateWindow      = 120 * time.Second
	DefaultEvidenceMaxBytes     = 2 << 20
)

// Load reads an optional .env file and then builds the config from the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	loc, err := time.LoadLocation(getEnv("ORG_TIMEZONE", DefaultTimezone))
	if err != nil {
		return Config{}, fmt.Errorf("ORG_TIMEZONE: %w", err)
	}

	tieBreak := TieBreak(getEnv("UNIVERSAL_TIE_BREAK", string(TieBreakListOrder)))
	if tieBreak != TieBreakListOrder && tieBreak != TieBreakNearest {
		return Config{}, fmt.Errorf("UNIVERSAL_TIE_BREAK: unknown policy %q", tieBreak)
	}

	return Config{
		Server: Server{
			Addr:           getEnv("PONTO_ADDR", ":8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
			TrustedProxies: os.Getenv("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     os.Getenv("KAFKA_BROKERS"),
			NotifyTopic: getEnv("NOTIFY_TOPIC", "ponto.clock-events"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "ponto@localhost"),
		},
		Attendance: Attendance{
			Location:             loc,
			UniversalCodePattern: getEnv("UNIVERSAL_CODE_PATTERN", DefaultUniversalCodePattern),
			TieBreak:             tieBreak,
			DuplicateWindow:      getDuration("DUPLICATE_WINDOW", DefaultDuplicateWindow),
			EvidenceMaxBytes:     int64(getInt("EVIDENCE_MAX_BYTES", DefaultEvidenceMaxBytes)),
			EvidenceDir:          os.Getenv("EVIDENCE_DIR"),
			EvidenceBucketURL:    os.Getenv("EVIDENCE_BUCKET_URL"),
			ReceiptSigningKey:    os.Getenv("RECEIPT_SIGNING_KEY"),
		},
		Notify: Notify{
			QueueSize: getInt("NOTIFY_QUEUE_SIZE", 256),
			Workers:   getInt("NOTIFY_WORKERS", 2),
		},
		RateLimit: RateLimit{
			PerWindow: getInt("RATE_LIMIT_PER_WINDOW", 120),
			Window:    getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}, nil
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
