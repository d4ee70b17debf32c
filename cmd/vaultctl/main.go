package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"snipvault/internal/auth"
	"snipvault/internal/config"
	"snipvault/internal/repository/postgres"
	postgresVault "snipvault/internal/repository/postgres/vault"
	serviceVault "snipvault/internal/service/vault"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// Version is stamped at build time with -ldflags "-X main.Version=..."
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "vaultctl",
	Short:   "Administer a snipvault database",
	Long:    `Maintenance commands for snipvault: user accounts, API keys, search index rebuilds, and an MCP server over stdio.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage: true,
}

// vault is an open connection with every service wired
type vault struct {
	cfg      *config.Config
	logger   *slog.Logger
	services *serviceVault.Services
	close    func()
}

// openVault loads configuration and connects. Logs go to stderr so stdout
// stays clean for command output and the MCP stream.
func openVault(ctx context.Context, component string) (*vault, error) {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg, component, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	repos := postgresVault.NewRepositories(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	})

	return &vault{
		cfg:      cfg,
		logger:   logger,
		services: serviceVault.SetupServices(repos, auth.NewBcryptHasher(bcrypt.DefaultCost), cfg.RebuildConcurrency, logger),
		close: func() {
			pool.Close()
			closeLog()
		},
	}, nil
}

func init() {
	rootCmd.AddCommand(rebuildIndexCmd)
	rootCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(rotateKeyCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
