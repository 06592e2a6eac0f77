package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSlotTimes — фиксированная сетка времени записи.
var DefaultSlotTimes = []string{"10:00", "11:00", "12:00", "14:00", "15:00", "16:00"}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type SessionConfig struct {
	Backend       string
	MaxEntries    int
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string // host:port
	SampleRatio  float64
}

type Config struct {
	DB *DBConfig

	GRPCAddr string
	LogLevel string
	AdminIDs []int64

	SlotTimes           []string
	HorizonDaysPerMonth int

	// RescheduleIgnoresCapacity отключает проверку лимита дня при переносе записи.
	RescheduleIgnoresCapacity bool
	Location                  *time.Location
	// NotifyTimeout — сколько операция ждёт отправки уведомлений.
	NotifyTimeout time.Duration

	Session   SessionConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
}

// Load читает .env (если есть) и окружение процесса.
// Все некорректные значения собираются в одну ошибку.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbCfg, err := LoadDBConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DB:                        dbCfg,
		GRPCAddr:                  getEnv("CORE_GRPC_ADDR", ":50051"),
		LogLevel:                  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		SlotTimes:                 DefaultSlotTimes,
		HorizonDaysPerMonth:       getEnvInt("HORIZON_DAYS_PER_MONTH", 30),
		RescheduleIgnoresCapacity: getEnvBool("RESCHEDULE_IGNORE_CAPACITY", false),
		Location:                  time.Local,
		NotifyTimeout:             getEnvDuration("NOTIFY_TIMEOUT", 2*time.Second),
		Session: SessionConfig{
			Backend:       strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
			MaxEntries:    getEnvInt("SESSION_MAX_ENTRIES", 10000),
			TTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_NOTIFY_TOPIC", "booking.notifications"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "booking-core"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  1,
		},
	}

	invalid := make([]string, 0, 4)

	if raw, ok := os.LookupEnv("ADMIN_IDS"); ok {
		ids, err := parseIDs(raw)
		if err != nil {
			invalid = append(invalid, "ADMIN_IDS")
		} else {
			cfg.AdminIDs = ids
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SLOT_TIMES")); raw != "" {
		times := splitList(raw)
		if len(times) == 0 || !validSlotTimes(times) {
			invalid = append(invalid, "SLOT_TIMES")
		} else {
			cfg.SlotTimes = times
		}
	}

	if cfg.NotifyTimeout <= 0 {
		invalid = append(invalid, "NOTIFY_TIMEOUT")
	}

	if cfg.HorizonDaysPerMonth <= 0 {
		invalid = append(invalid, "HORIZON_DAYS_PER_MONTH")
	}

	if name := strings.TrimSpace(os.Getenv("TIMEZONE_NAME")); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			invalid = append(invalid, "TIMEZONE_NAME")
		} else {
			cfg.Location = loc
		}
	}

	switch cfg.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		invalid = append(invalid, "SESSION_BACKEND")
	}
	if cfg.Session.MaxEntries <= 0 {
		invalid = append(invalid, "SESSION_MAX_ENTRIES")
	}
	if cfg.Session.TTL <= 0 {
		invalid = append(invalid, "SESSION_TTL")
	}

	if raw := strings.TrimSpace(os.Getenv("OTEL_SAMPLING_RATIO")); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			invalid = append(invalid, "OTEL_SAMPLING_RATIO")
		} else {
			cfg.Telemetry.SampleRatio = ratio
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "LOG_LEVEL")
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid config values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// IsAdmin сообщает, входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func parseIDs(raw string) ([]int64, error) {
	parts := splitList(raw)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse admin id %q: %w", p, err)
		}
		if id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validSlotTimes(times []string) bool {
	seen := make(map[string]struct{}, len(times))
	for _, t := range times {
		if _, err := time.Parse("15:04", t); err != nil {
			return false
		}
		if _, dup := seen[t]; dup {
			return false
		}
		seen[t] = struct{}{}
	}
	return true
}
