// Package testutil provides helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// OpenPostgres connects to the test database or skips the test.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := getEnvOrDefault("TEST_POSTGRES_DSN", fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "test"),
		getEnvOrDefault("DB_PASSWORD", "test"),
		getEnvOrDefault("DB_NAME", "trustlayer_test"),
	))
	return openSQL(t, "postgres", dsn)
}

// OpenMySQL connects to the test database or skips the test.
func OpenMySQL(t *testing.T) *sql.DB {
	t.Helper()
	dsn := getEnvOrDefault("TEST_MYSQL_DSN", "test:test@tcp(localhost:3306)/trustlayer_test?parseTime=true")
	return openSQL(t, "mysql", dsn)
}

func openSQL(t *testing.T, driver, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		t.Skipf("Skipping test: cannot open %s: %v", driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping test: %s not available: %v", driver, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close %s: %v", driver, err)
		}
	})
	return db
}

// OpenRedis connects to the test redis or skips the test.
func OpenRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: getEnvOrDefault("TEST_REDIS_ADDR", "localhost:6379")})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Skipping test: redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
