// Track alarm bridge.
//
// Subscribes to the camera's consolidated track topic, turns each accepted
// detection into an alarm and POSTs it to the alarm server. Runs until
// SIGINT/SIGTERM (exit 0) or until the transport fails (exit 1).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/track-alarm-bridge/internal/api"
	"github.com/nerrad567/track-alarm-bridge/internal/credentials"
	"github.com/nerrad567/track-alarm-bridge/internal/delivery"
	"github.com/nerrad567/track-alarm-bridge/internal/feature"
	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/database"
	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/nats"
	"github.com/nerrad567/track-alarm-bridge/internal/journal"
	"github.com/nerrad567/track-alarm-bridge/internal/pipeline"
	"github.com/nerrad567/track-alarm-bridge/internal/subscriber"
	"github.com/nerrad567/track-alarm-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv names the environment variable that overrides defaultConfigPath.
const configEnv = "ALARMBRIDGE_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown and an error (possibly a
// *subscriber.FatalError) otherwise. Resources are released in reverse
// order of acquisition by deferred calls.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting alarm bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	var observers []pipeline.Observer
	var deliveries api.DeliveryLister

	// Delivery journal (if enabled)
	if cfg.Journal.Enabled {
		db, repo, openErr := openJournal(ctx, cfg.Database)
		if openErr != nil {
			return openErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("delivery journal enabled", "path", db.Path())

		observers = append(observers, repo)
		deliveries = repo
	}

	// InfluxDB metrics (if enabled)
	if cfg.InfluxDB.Enabled {
		metrics, connErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		metrics.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write failed", "error", writeErr)
		})
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := metrics.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		observers = append(observers, metrics)
	}

	deliverer, err := delivery.NewClient(delivery.Options{
		URL:    cfg.Alarm.ServerURL,
		Logger: log.Component("delivery"),
	})
	if err != nil {
		return fmt.Errorf("creating alarm client: %w", err)
	}

	processor, err := pipeline.New(pipeline.Options{
		CameraID:      cfg.Device.CameraID,
		Topic:         cfg.Channel.Topic,
		Source:        cfg.Channel.Source,
		Deliverer:     deliverer,
		Logger:        log.Component("pipeline"),
		Observers:     observers,
		ShutdownGrace: cfg.GetShutdownGrace(),
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	connector, err := newConnector(cfg.Transport, log.Component("transport"))
	if err != nil {
		return err
	}

	manager, err := subscriber.New(subscriber.Options{
		Connector: connector,
		Channel:   subscriber.Channel{Topic: cfg.Channel.Topic, Source: cfg.Channel.Source},
		Handler:   processor.Handle,
		Logger:    log.Component("subscriber"),
	})
	if err != nil {
		return fmt.Errorf("creating subscriber: %w", err)
	}

	if startErr := manager.Start(ctx); startErr != nil {
		return fmt.Errorf("starting subscription: %w", startErr)
	}
	defer manager.Stop()
	log.Info("subscription requested",
		"transport", cfg.Transport.Kind,
		"channel", manager.Channel().String(),
	)

	if cfg.Feature.Enabled {
		toggleFeature(ctx, cfg.Feature, log.Component("feature"))
	}

	// Status API (if enabled)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:       cfg.API,
			Logger:       log.Component("api"),
			CameraID:     cfg.Device.CameraID,
			Subscription: manager,
			Stats:        processor,
			Journal:      deliveries,
			Version:      version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr := server.Start(ctx); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for track messages")

	if runErr := manager.Run(ctx); runErr != nil {
		return fmt.Errorf("subscription ended: %w", runErr)
	}

	stats := processor.Stats()
	log.Info("alarm bridge stopped",
		"received", stats.Received,
		"delivered", stats.Delivered,
		"delivery_failed", stats.DeliveryFailed,
	)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ALARMBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// openJournal opens the database, applies the embedded migrations and
// returns the journal repository on top of it.
func openJournal(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, *journal.SQLiteRepository, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, journal.NewSQLiteRepository(db.DB), nil
}

// newConnector builds the transport named by cfg.Kind.
func newConnector(cfg config.TransportConfig, log *logging.Logger) (subscriber.Connector, error) {
	switch cfg.Kind {
	case config.TransportMQTT:
		return mqtt.NewConnector(cfg.MQTT, log), nil
	case config.TransportNATS:
		return nats.NewConnector(cfg.NATS, log), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Kind)
	}
}

// toggleFeature performs the one-shot feature toggle. Every failure is
// logged and the bridge keeps running without the feature.
func toggleFeature(ctx context.Context, cfg config.FeatureConfig, log *logging.Logger) {
	configurator, err := newConfigurator(cfg, log)
	if err != nil {
		log.Error("feature toggle skipped", "error", err)
		return
	}
	_ = configurator.Configure(ctx)
}

// newConfigurator builds the feature configurator with the configured
// credential source.
func newConfigurator(cfg config.FeatureConfig, log *logging.Logger) (*feature.Configurator, error) {
	var provider credentials.Provider
	switch cfg.Credentials.Source {
	case config.CredentialsStatic:
		provider = credentials.StaticProvider{Value: cfg.Credentials.Static}
	default:
		provider = credentials.NewDBusProvider(nil)
	}

	return feature.New(feature.Options{
		URL:         cfg.URL,
		Account:     cfg.Account,
		Credentials: provider,
		Logger:      log,
	})
}
