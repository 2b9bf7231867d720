package app

import (
	"context"
	"fmt"

	"rentalhub/internal/config"
	"rentalhub/internal/database"
	"rentalhub/internal/modules/rental"
	"rentalhub/internal/repository"
	"rentalhub/internal/storage"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Application holds the rental store and file store selected by
// configuration, shared by the API server and rentalctl.
type Application struct {
	Config  *config.Config
	Log     *zap.Logger
	Rentals rental.RentalStore
	Files   rental.FileStore

	migrate func(ctx context.Context) error
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Application, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Application{Config: cfg, Log: log}

	if err := a.openStore(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openFiles(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.StoreGorm:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "connect database")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return errors.Wrap(err, "database handle")
		}
		a.closers = append(a.closers, sqlDB.Close)

		repo := repository.NewRentalRepository(db)
		a.Rentals = repo
		a.migrate = func(context.Context) error { return repo.Migrate() }

	case config.StoreMongo:
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return errors.Wrap(err, "connect mongo")
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })

		store := repository.NewMongoRentalStore(client.Database(cfg.MongoDatabase))
		a.Rentals = store
		a.migrate = store.EnsureIndexes

	case config.StoreBolt:
		store, err := repository.OpenBoltRentalStore(cfg.BoltPath)
		if err != nil {
			return errors.Wrap(err, "open bolt store")
		}
		a.closers = append(a.closers, store.Close)
		a.Rentals = store
		a.migrate = func(context.Context) error { return nil }

	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	a.Log.Info("rental store ready", zap.String("driver", cfg.StoreDriver))
	return nil
}

func (a *Application) openFiles() error {
	cfg := a.Config
	switch cfg.FileBackend {
	case config.FilesLocal:
		files, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return err
		}
		a.Files = files
		a.Log.Info("file store ready", zap.String("backend", cfg.FileBackend), zap.String("root", files.Root()))

	case config.FilesSFTP:
		conn, err := storage.DialSFTP(storage.SFTPConfig{
			Addr:                  cfg.SFTPAddr,
			User:                  cfg.SFTPUser,
			Password:              cfg.SFTPPassword,
			HostKey:               cfg.SFTPHostKey,
			InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreKey,
			Root:                  cfg.SFTPRoot,
			Timeout:               cfg.SFTPTimeout,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, conn.Close)

		files, err := storage.NewSFTPStore(conn.Client, cfg.SFTPRoot)
		if err != nil {
			return err
		}
		a.Files = files
		a.Log.Info("file store ready", zap.String("backend", cfg.FileBackend), zap.String("addr", cfg.SFTPAddr))

	default:
		return fmt.Errorf("unknown file backend %q", cfg.FileBackend)
	}
	return nil
}

// Migrate prepares the store schema or indexes.
func (a *Application) Migrate(ctx context.Context) error {
	if a.migrate == nil {
		return nil
	}
	return a.migrate(ctx)
}

func (a *Application) Service() *rental.Service {
	return rental.NewService(a.Rentals, a.Files, rental.Options{
		PublicPrefix: a.Config.PublicPrefix,
		MaxImageSize: a.Config.MaxImageSize,
	}, a.Log)
}

// Close releases resources in reverse order of acquisition.
func (a *Application) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
