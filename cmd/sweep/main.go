package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"qrbook.backend/internal/bootstrap"
	"qrbook.backend/internal/config"
	"qrbook.backend/internal/infrastructure/jobs"
	"qrbook.backend/internal/usecases"
	"qrbook.backend/pkg/imageutil"
	"qrbook.backend/pkg/logger"
)

type sweepDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(ctx context.Context, cfg *config.Config) (jobs.CardSweeper, io.Closer, error)
	out     io.Writer
}

func defaultSweepDeps() sweepDeps {
	return sweepDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(ctx context.Context, cfg *config.Config) (jobs.CardSweeper, io.Closer, error) {
			stores, err := bootstrap.OpenStores(ctx, cfg, bootstrap.DefaultDialers())
			if err != nil {
				return nil, nil, err
			}
			blobs, err := bootstrap.NewBlobStore(cfg.Storage)
			if err != nil {
				_ = stores.Close()
				return nil, nil, fmt.Errorf("failed to initialize image storage: %w", err)
			}
			uc := usecases.NewCardUsecase(stores.Cards, stores.Users, blobs, stores.UoW,
				imageutil.NewNormalizer(cfg.Cards.ImageMaxDimension),
				usecases.CardUsecaseConfig{
					PublicHost:     cfg.Cards.PublicHost,
					SweepBatchSize: cfg.Cards.SweepBatchSize,
					MaxImageBytes:  cfg.Cards.MaxImageBytes,
				})
			return uc, stores, nil
		},
		out: os.Stdout,
	}
}

// runSweep deletes every expired unpaid card once and reports the counts.
func runSweep(deps sweepDeps) error {
	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := deps.loadCfg()
	logger.Init(cfg.Server.Env)

	ctx := context.Background()
	sweeper, closer, err := deps.prepare(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	result, err := sweeper.SweepExpiredUnpaid(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	_, _ = fmt.Fprintf(deps.out, "deleted=%d failed=%d skipped=%d\n", result.Deleted, result.Failed, result.Skipped)
	if result.Failed > 0 {
		return fmt.Errorf("%d cards could not be deleted", result.Failed)
	}
	return nil
}

func main() {
	if err := runSweep(defaultSweepDeps()); err != nil {
		log.Fatal(err)
	}
}
