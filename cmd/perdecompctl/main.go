package main

import (
	"context"
	"fmt"
	"os"
	"perdecomp/cmd/internal/config"
	"perdecomp/cmd/internal/domain/perdcomp"
	"perdecomp/cmd/internal/domain/sqlite"
	"perdecomp/cmd/internal/domain/sqlite/repository"
	"perdecomp/cmd/internal/service"
	"perdecomp/cmd/internal/utils/uid"
	"perdecomp/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "perdecompctl",
		Short:         "Operator tools for the PER/DCOMP lookup service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cnpjCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(backfillRiskCmd())
	rootCmd.AddCommand(reconcileIDsCmd())
	rootCmd.AddCommand(seedDictionaryCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds what the database commands share.
type env struct {
	dictionary *service.DictionaryService
	perdcomp   *service.PerdcompService
}

// loadConfig reads .env when present and the environment.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// openEnv connects to the configured database and builds the services the
// maintenance commands run on. No provider client is created.
func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	uid.Init(cfg.SnowflakeNode)

	db, err := sqlite.Init(sqlite.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, Silent: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	validate := validator.New()
	validators.Register(validate)

	store := repository.NewTableStore(db)
	clients := repository.NewClientRepository(store)
	snapshots := repository.NewSnapshotRepository(store)
	facts := repository.NewFactRepository(store)
	legacy := repository.NewLegacyRepository(store)
	dictionary := service.NewDictionaryService(config.TaxonomyStore, perdcomp.DefaultSeed(), repository.NewDictionaryRepository(store))

	perdcompService := service.NewPerdcompService(
		nil,
		snapshots,
		facts,
		legacy,
		service.NewIdentityResolver(clients, snapshots, facts, legacy),
		dictionary.Taxonomy(),
		validate,
	)

	if _, err := dictionary.Reload(context.Background()); err != nil {
		log.Warnf("dictionary tables not loaded, using the embedded taxonomy: %v", err)
	}

	return &env{dictionary: dictionary, perdcomp: perdcompService}, nil
}
