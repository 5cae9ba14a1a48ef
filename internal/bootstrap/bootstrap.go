// Package bootstrap builds the stores and outbound adapters selected by
// configuration. The server and the maintenance commands share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"qrbook.backend/internal/config"
	"qrbook.backend/internal/domain/repositories"
	"qrbook.backend/internal/infrastructure/blobstore"
	"qrbook.backend/internal/infrastructure/mailer"
	"qrbook.backend/internal/infrastructure/models"
	"qrbook.backend/internal/infrastructure/mongostore"
	gormrepos "qrbook.backend/internal/infrastructure/repositories"
	"qrbook.backend/internal/usecases"
	"qrbook.backend/pkg/logger"
)

// Stores bundles the repositories of the selected document store.
type Stores struct {
	Cards repositories.CardRepository
	Users repositories.UserRepository
	UoW   repositories.UnitOfWork
	close func() error
}

// Close releases the underlying connection.
func (s *Stores) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Dialers opens database connections. Tests swap them for in-memory ones.
type Dialers struct {
	OpenSQL      func(dsn string) (*gorm.DB, error)
	ConnectMongo func(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error)
}

// DefaultDialers connects to PostgreSQL through gorm and to MongoDB.
func DefaultDialers() Dialers {
	return Dialers{
		OpenSQL:      OpenPostgres,
		ConnectMongo: mongostore.Connect,
	}
}

// OpenPostgres opens a gorm connection without prepared statements so it
// works behind transaction poolers.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
	})
}

// OpenStores connects to the store named by cfg.Database.Driver.
func OpenStores(ctx context.Context, cfg *config.Config, d Dialers) (*Stores, error) {
	if cfg.Database.UsesMongo() {
		return openMongoStores(ctx, cfg.Mongo, d)
	}
	return openSQLStores(ctx, cfg.Database, d)
}

func openSQLStores(ctx context.Context, cfg config.DatabaseConfig, d Dialers) (*Stores, error) {
	if d.OpenSQL == nil {
		return nil, errors.New("no SQL dialer configured")
	}
	db, err := d.OpenSQL(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic database object: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Warn(ctx, "Database not available, endpoints will return errors", zap.Error(err))
	} else {
		logger.Info(ctx, "Connected to SQL store", zap.String("driver", cfg.Driver))
		if cfg.AutoMigrate {
			if err := models.AutoMigrate(db); err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
	}

	return &Stores{
		Cards: gormrepos.NewCardRepository(db),
		Users: gormrepos.NewUserRepository(db),
		UoW:   gormrepos.NewUnitOfWork(db),
		close: sqlDB.Close,
	}, nil
}

func openMongoStores(ctx context.Context, cfg config.MongoConfig, d Dialers) (*Stores, error) {
	if d.ConnectMongo == nil {
		return nil, errors.New("no MongoDB dialer configured")
	}
	client, db, err := d.ConnectMongo(ctx, cfg.URI, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info(ctx, "Connected to MongoDB", zap.String("database", cfg.Database))

	return &Stores{
		Cards: mongostore.NewCardRepository(db),
		Users: mongostore.NewUserRepository(db),
		UoW:   mongostore.NewUnitOfWork(),
		close: func() error { return client.Disconnect(context.Background()) },
	}, nil
}

// NewBlobStore returns the image store named by cfg.Driver.
func NewBlobStore(cfg config.StorageConfig) (repositories.BlobStore, error) {
	switch cfg.Driver {
	case "oss":
		store, err := blobstore.NewOSSStore(blobstore.OSSConfig{
			Endpoint:        cfg.OSSEndpoint,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			Bucket:          cfg.OSSBucket,
			Prefix:          cfg.OSSPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "", "local":
		store, err := blobstore.NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMailer returns the SMTP mailer, or a logging one for development.
func NewMailer(cfg config.MailConfig) usecases.Mailer {
	if cfg.Driver == "smtp" {
		return mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		})
	}
	return mailer.NewLogMailer()
}
