package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/markethunt/backend/pkg/config"
)

func TestHealthCheck(t *testing.T) {
	// Skip if TEST_DATABASE_URL is not set
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: time.Minute,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}

	if status.Stats.MaxConns != 4 {
		t.Errorf("Expected MaxConns to be 4, got %d", status.Stats.MaxConns)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{URL: "://not a url"},
	}

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected error for invalid database URL")
	}
}
