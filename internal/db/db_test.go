package db

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zulandar/sightline/internal/config"
	"github.com/zulandar/sightline/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		user     string
		password string
		database string
		want     string
	}{
		{
			name:     "default local",
			host:     "127.0.0.1",
			port:     3306,
			user:     "root",
			database: "sightline",
			want:     "root@tcp(127.0.0.1:3306)/sightline?parseTime=true",
		},
		{
			name:     "password and custom port",
			host:     "10.0.0.5",
			port:     3307,
			user:     "sightline",
			password: "s3cret",
			database: "sightline_prod",
			want:     "sightline:s3cret@tcp(10.0.0.5:3307)/sightline_prod?parseTime=true",
		},
		{
			name: "admin without database",
			host: "db.vpc.internal",
			port: 3306,
			user: "root",
			want: "root@tcp(db.vpc.internal:3306)/?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.host, tt.port, tt.user, tt.password, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 3 {
		t.Errorf("AllModels() returned %d models, want 3", got)
	}
}

func TestConnect_SQLite(t *testing.T) {
	db, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), `unsupported driver "oracle"`) {
		t.Errorf("error = %q, want unsupported driver message", err.Error())
	}
}

func TestConnect_MySQLError(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := Connect(config.DatabaseConfig{Driver: "mysql", Host: "127.0.0.1", Port: 1, User: "root", Name: "nonexistent"})
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect to")
	}
}

func TestConnectAdmin_Error(t *testing.T) {
	_, err := ConnectAdmin(config.DatabaseConfig{Host: "127.0.0.1", Port: 1, User: "root"})
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: admin connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: admin connect to")
	}
}

func seedConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

const registryYAML = `
providers:
  - id: openai
    base_url: https://api.openai.com/v1
    api_key_env: TEST_SEED_OPENAI_KEY
models:
  - id: gpt-4o
    provider: openai
    input_price_per_million: 2.5
    output_price_per_million: 10
  - id: gpt-3.5-turbo
    provider: openai
    input_price_per_million: 0.5
    output_price_per_million: 1.5
    active: false
`

func TestSeedRegistry(t *testing.T) {
	t.Setenv("TEST_SEED_OPENAI_KEY", "sk-seed")
	db := openTestDB(t)

	if err := SeedRegistry(db, seedConfig(t, registryYAML)); err != nil {
		t.Fatalf("SeedRegistry: %v", err)
	}

	var p models.Provider
	if err := db.First(&p, "id = ?", "openai").Error; err != nil {
		t.Fatalf("load provider: %v", err)
	}
	if p.APIKey != "sk-seed" {
		t.Errorf("APIKey = %q, want %q", p.APIKey, "sk-seed")
	}
	if p.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", p.MaxAttempts)
	}
	if !p.Active {
		t.Error("provider should be active")
	}

	var m models.Model
	if err := db.First(&m, "id = ?", "gpt-3.5-turbo").Error; err != nil {
		t.Fatalf("load model: %v", err)
	}
	if m.Active {
		t.Error("gpt-3.5-turbo should be seeded inactive")
	}

	var count int64
	db.Model(&models.Model{}).Count(&count)
	if count != 2 {
		t.Errorf("model count = %d, want 2", count)
	}
}

func TestSeedRegistry_UpsertUpdatesPricing(t *testing.T) {
	db := openTestDB(t)
	if err := SeedRegistry(db, seedConfig(t, registryYAML)); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	updated := strings.Replace(registryYAML, "input_price_per_million: 2.5", "input_price_per_million: 3.75", 1)
	if err := SeedRegistry(db, seedConfig(t, updated)); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var m models.Model
	if err := db.First(&m, "id = ?", "gpt-4o").Error; err != nil {
		t.Fatalf("load model: %v", err)
	}
	if !m.InputPricePerMillion.Equal(decimal.RequireFromString("3.75")) {
		t.Errorf("InputPricePerMillion = %v, want 3.75", m.InputPricePerMillion)
	}

	var count int64
	db.Model(&models.Model{}).Count(&count)
	if count != 2 {
		t.Errorf("model count after upsert = %d, want 2", count)
	}
}

func TestSeedRegistry_Empty(t *testing.T) {
	db := openTestDB(t)
	if err := SeedRegistry(db, &config.Config{}); err != nil {
		t.Errorf("SeedRegistry(empty) = %v, want nil", err)
	}
}
