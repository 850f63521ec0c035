// Command admin runs maintenance tasks against the SilvaSentinel database:
// bootstrap the first administrator, change roles and statuses, read the
// activity log and the statistics.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/logger"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliIP is recorded as the origin of activity performed from this tool.
const cliIP = "cli"

var actingAs string

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "SilvaSentinel maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&actingAs, "as", "", "username of the staff account performing the change")

	rootCmd.AddCommand(
		newCreateAdminCmd(),
		newSetRoleCmd(),
		newToggleActiveCmd(),
		newDeleteAccountCmd(),
		newSetStatusCmd(),
		newLogsCmd(),
		newStatsCmd(),
		newSeedCategoriesCmd(),
	)
	return rootCmd.ExecuteContext(ctx)
}

// env is what every command needs.
type env struct {
	store *storage.Service
	log   *zap.Logger
}

// withStorage opens the configured database (without Redis) and runs fn.
func withStorage(ctx context.Context, fn func(*env) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := storage.Migrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(&env{store: storage.NewStorageService(db, nil, log), log: log})
}

// actor resolves --as into an active account.
func (e *env) actor(ctx context.Context) (models.Actor, error) {
	if actingAs == "" {
		return models.Actor{}, errors.New("--as <username> is required for this command")
	}
	a, err := e.store.GetAccountByUsername(ctx, actingAs)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Actor{}, fmt.Errorf("account %q does not exist", actingAs)
	}
	if err != nil {
		return models.Actor{}, err
	}
	if !a.Active {
		return models.Actor{}, fmt.Errorf("account %q is inactive", actingAs)
	}
	return models.Actor{Account: a, IP: cliIP}, nil
}

func (e *env) account(ctx context.Context, username string) (*models.Account, error) {
	a, err := e.store.GetAccountByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("account %q does not exist", username)
	}
	return a, err
}
