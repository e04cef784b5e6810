package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Runteryaa/RunStore/internal/models"
)

type Config struct {
	ServerAddr  string
	DatabaseURL string
	LogLevel    string

	JWTSecret []byte
	TokenTTL  time.Duration

	AdminEmail    string
	AdminPassword string
	AdminName     string

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

func must(v string, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment variables")
	}

	ttl := 7 * 24 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid TOKEN_TTL %q: %v", v, err)
		}
		ttl = d
	}

	return &Config{
		ServerAddr:  envDefault("SERVER_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    envDefault("LOG_LEVEL", "info"),

		JWTSecret: []byte(must(os.Getenv("JWT_HS256_SECRET"), "JWT_HS256_SECRET")),
		TokenTTL:  ttl,

		AdminEmail:    envDefault("ADMIN_EMAIL", "admin@runstore.com"),
		AdminPassword: envDefault("ADMIN_PASSWORD", "admin123"),
		AdminName:     envDefault("ADMIN_NAME", "Admin User"),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envDefault("KAFKA_TOPIC", "app_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    envDefault("ES_INDEX", "apps"),
	}
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

// InitDB opens the store database. With DATABASE_URL set it connects to
// postgres; otherwise it falls back to a local sqlite file so the service
// runs without external infrastructure.
func (c *Config) InitDB(ctx context.Context) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	}

	var db *gorm.DB
	var err error
	if c.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(c.DatabaseURL), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open("runstore.db"), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if c.DatabaseURL != "" {
		configurePool(sqlDB)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("ping db: %w", err)
		}
	} else {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.App{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}
