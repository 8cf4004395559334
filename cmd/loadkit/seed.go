package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/armistcxy/url-shorten/internal/adapter/repository/postgres"
	"github.com/armistcxy/url-shorten/internal/app"
	"github.com/armistcxy/url-shorten/internal/config"
	"github.com/armistcxy/url-shorten/internal/loadkit"
)

const (
	modeUpsert = "upsert"
	modePut    = "put"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load generated records into the configured store.",
	Long: `Loads records written by datagen. The id of a record is the part of
its key after the first separator.

  --mode upsert  batch insert, overwriting existing ids (Postgres only)
  --mode put     one record at a time, never overwriting; safe to replay

Example:
  loadkit seed --config config/local.yml --data data.json --mode put`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()

		cfgPath, _ := flags.GetString("config")
		dataPath, _ := flags.GetString("data")
		mode, _ := flags.GetString("mode")
		sep, _ := flags.GetString("separator")
		batch, _ := flags.GetInt("batch")

		if mode != modeUpsert && mode != modePut {
			return fmt.Errorf("unknown mode %q, want %s or %s", mode, modeUpsert, modePut)
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		entries, err := loadkit.ReadJSON[loadkit.Entry](dataPath)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		if mode == modeUpsert {
			if cfg.Storage.Driver != config.StorageDriverPostgres {
				return fmt.Errorf("mode %s requires the %s storage driver", modeUpsert, config.StorageDriverPostgres)
			}
			// Overwrites must not race a cache that still holds the old URL.
			cfg.Cache.Driver = config.CacheDriverNone
		}

		store, closeStore, err := app.OpenStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		var report loadkit.Report

		switch mode {
		case modeUpsert:
			repo, ok := store.(*postgres.URLRepository)
			if !ok {
				return fmt.Errorf("store %T does not support upsert", store)
			}
			report, err = loadkit.Upsert(ctx, repo, entries, sep, batch)
		case modePut:
			uc, ucErr := app.NewURLUseCase(cfg, store, logger)
			if ucErr != nil {
				return ucErr
			}
			report, err = loadkit.Put(ctx, uc, entries, sep, logger)
		}
		if err != nil {
			return err
		}

		logger.Info("seeding finished",
			"mode", mode,
			"records", len(entries),
			"written", report.Written,
			"conflicts", report.Conflicts,
		)

		return nil
	},
}

func init() {
	flags := seedCmd.Flags()
	flags.String("config", os.Getenv("CONFIG_PATH"), "path to the service config file")
	flags.String("data", "data.json", "records produced by datagen")
	flags.String("mode", modeUpsert, "upsert or put")
	flags.String("separator", loadkit.DefaultSeparator, "separator between key prefix and id")
	flags.Int("batch", loadkit.DefaultBatchSize, "records per statement in upsert mode, at most 32767")

	rootCmd.AddCommand(seedCmd)
}
