package infrastructure_test

import (
	"testing"

	"github.com/JaimeStill/shiftmatch/internal/config"
	"github.com/JaimeStill/shiftmatch/internal/infrastructure"
	"github.com/JaimeStill/shiftmatch/pkg/database"
	"github.com/JaimeStill/shiftmatch/pkg/storage"
	"github.com/JaimeStill/shiftmatch/pkg/tracing"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "shiftmatch",
			User:            "shiftmatch",
			Password:        "shiftmatch",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			Enabled:          true,
			ContainerName:    "attribution-reports",
			ConnectionString: azuriteConnString,
			Prefix:           "runs",
		},
		Tracing:  tracing.Config{ServiceName: "shiftmatch"},
		Version:  "0.1.0",
		LogLevel: "info",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Database.Connection().Close()

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if !storage.Enabled(infra.Storage) {
		t.Error("Storage should be enabled")
	}
}

func TestNewStorageDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = storage.Config{Prefix: "runs"}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Database.Connection().Close()

	if storage.Enabled(infra.Storage) {
		t.Error("Storage should be disabled")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not-a-connection-string"

	_, err := infrastructure.New(cfg)
	if err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}
