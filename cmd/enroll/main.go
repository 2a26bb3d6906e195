package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tendant/device-trust/pkg/devicefp"
	"github.com/tendant/device-trust/pkg/handshake"
	handshakeapi "github.com/tendant/device-trust/pkg/handshake/api"
	"github.com/tendant/device-trust/pkg/keymanager"
	"github.com/tendant/device-trust/pkg/notify"
	"github.com/tendant/device-trust/pkg/securestore"
)

type DbConfig struct {
	Host     string `env:"TRUST_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"TRUST_PG_PORT" env-default:"5432"`
	Database string `env:"TRUST_PG_DATABASE" env-default:"device_trust_db"`
	User     string `env:"TRUST_PG_USER" env-default:"trust"`
	Password string `env:"TRUST_PG_PASSWORD" env-default:"pwd"`
}

func (d DbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type Config struct {
	DbConfig        DbConfig
	ServerURL       string        `env:"TRUST_SERVER_URL" env-default:"http://localhost:4000/api/device"`
	ListenAddr      string        `env:"TRUST_LISTEN_ADDR" env-default:"localhost:4490"`
	PersistenceType string        `env:"TRUST_PERSISTENCE_TYPE" env-default:"file"`
	DataDir         string        `env:"TRUST_DATA_DIR" env-default:".device-trust"`
	StoreSecret     string        `env:"TRUST_STORE_SECRET" env-default:"very-secure-store-secret"`
	Locale          string        `env:"TRUST_LOCALE" env-default:"en-US"`
	EnrollOnBoot    bool          `env:"TRUST_ENROLL_ON_BOOT" env-default:"true"`
	SettleDelay     time.Duration `env:"TRUST_SETTLE_DELAY" env-default:"0s"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true, // Enables line number & file path
	}))
	slog.SetDefault(logger)

	// Load .env file if it exists (before reading environment variables)
	if err := godotenv.Load(); err == nil {
		slog.Info("Configuration loaded from .env file")
	}

	config := Config{}
	cleanenv.ReadEnv(&config)

	// Build the entry repository per the configured persistence type
	repoConfig := securestore.RepositoryConfig{
		DataDir: config.DataDir,
	}
	if config.PersistenceType == "postgres" || config.PersistenceType == "postgresql" {
		pool, err := pgxpool.New(context.Background(), config.DbConfig.toDatabaseURL())
		if err != nil {
			slog.Error("Failed creating dbpool", "db", config.DbConfig.Database, "host", config.DbConfig.Host, "port", config.DbConfig.Port, "user", config.DbConfig.User)
			os.Exit(-1)
		}
		defer pool.Close()
		repoConfig.DB = pool
	}

	repo, err := securestore.NewEntryRepository(config.PersistenceType, repoConfig)
	if err != nil {
		slog.Error("Failed creating entry repository", "type", config.PersistenceType, "err", err)
		os.Exit(-1)
	}

	store := securestore.New(repo)
	defer store.Close()
	handshake.ConfigureStore(store, config.StoreSecret)

	keys := keymanager.NewService(store)
	collector := devicefp.NewCollector(devicefp.SystemSource{})
	transport := handshake.NewHTTPTransport(config.ServerURL)

	client := handshake.NewClient(store, keys, collector, transport,
		handshake.WithConfig(handshake.Config{
			SettleDelay: config.SettleDelay,
			Locale:      config.Locale,
		}),
		handshake.WithPushProvider(notify.NoopProvider{}),
		handshake.OnTakingLong(func() {
			slog.Info("Handshake is taking longer than expected")
		}),
	)

	if config.EnrollOnBoot {
		if err := client.Start(context.Background()); err != nil {
			slog.Error("Initial handshake failed", "state", client.State(), "err", err)
		} else {
			slog.Info("Device registered", "state", client.State())
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/device", handshakeapi.NewHandshakeHandler(client).Routes())

	slog.Info("Starting enrollment service", "addr", config.ListenAddr, "server", config.ServerURL)
	if err := http.ListenAndServe(config.ListenAddr, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(-1)
	}
}
