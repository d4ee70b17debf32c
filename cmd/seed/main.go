package main

import (
	"context"
	"flag"
	"log"
	"os"

	"snipvault/internal/auth"
	"snipvault/internal/config"
	"snipvault/internal/repository/postgres"
	postgresVault "snipvault/internal/repository/postgres/vault"
	"snipvault/internal/seed"
	serviceVault "snipvault/internal/service/vault"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't load a fixture")
	clearData := flag.Bool("clear-data", false, "Delete all rows (keep schema) and exit")
	fixturePath := flag.String("fixture", "", "YAML fixture to load (defaults to the bundled fixture)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger, closeLog, err := config.NewLogger(cfg, "seed", os.Stdout)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer closeLog()

	switch {
	case *clearData:
		log.Printf("Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Parse the fixture before touching the database
	var fixture *seed.Fixture
	if !*schemaOnly && !*clearData {
		fixture, err = loadFixture(*fixturePath)
		if err != nil {
			log.Fatalf("Failed to read fixture: %v", err)
		}
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("Dropping all tables...")
		dropped, err := postgres.DropAllTables(ctx, pool, tables)
		if err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Printf("Dropped %d tables", len(dropped))
	}

	// Run schema to ensure tables exist
	log.Println("Ensuring database schema is up to date...")
	if err := postgres.RunSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		if err := postgres.ClearData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("Data cleared successfully")
		return
	}

	// Create repositories and services; fixtures go through the normal write path
	repos := postgresVault.NewRepositories(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})
	services := serviceVault.SetupServices(repos, auth.NewBcryptHasher(bcrypt.DefaultCost), cfg.RebuildConcurrency, logger)

	loader := seed.NewLoader(seed.Services{
		Users:       services.Users,
		Tags:        services.Tags,
		Collections: services.Collections,
		Members:     services.Members,
		Snippets:    services.Snippets,
	}, logger)

	result, err := loader.Load(ctx, fixture)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	log.Printf("Created %d users, %d tags, %d collections, %d memberships, %d snippets",
		result.Users, result.Tags, result.Collections, result.Members, result.Snippets)
	for email, key := range result.APIKeys {
		log.Printf("API key for %s: %s", email, key)
	}
	log.Println("Seeding complete!")
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return seed.Parse(f)
}
