package main

import (
	"github.com/spf13/cobra"

	"github.com/armistcxy/url-shorten/internal/loadkit"
)

var datagenCmd = &cobra.Command{
	Use:   "datagen",
	Short: "Write fake URL records and a Zipf-distributed read scenario.",
	Long: `Writes N records {"key": "key_<i>", "value": <fake url>} and M reads
{"key": ...} drawn from them with a Zipf distribution.

Example:
  loadkit datagen --keys 10000 --reads 200000`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()

		keys, _ := flags.GetInt("keys")
		reads, _ := flags.GetInt("reads")
		zipfS, _ := flags.GetFloat64("zipf-s")
		zipfV, _ := flags.GetFloat64("zipf-v")
		seed, _ := flags.GetInt64("seed")
		dataPath, _ := flags.GetString("data")
		scenarioPath, _ := flags.GetString("scenario")

		entries, scenario, err := loadkit.Generate(loadkit.GenerateOptions{
			Keys:  keys,
			Reads: reads,
			ZipfS: zipfS,
			ZipfV: zipfV,
			Seed:  seed,
		})
		if err != nil {
			return err
		}

		if err := loadkit.WriteJSON(dataPath, entries); err != nil {
			return err
		}
		if err := loadkit.WriteJSON(scenarioPath, scenario); err != nil {
			return err
		}

		logger.Info("data generated",
			"keys", len(entries),
			"reads", len(scenario),
			"data", dataPath,
			"scenario", scenarioPath,
		)

		return nil
	},
}

func init() {
	flags := datagenCmd.Flags()
	flags.Int("keys", 10000, "number of records")
	flags.Int("reads", 200000, "number of reads in the scenario")
	flags.Float64("zipf-s", loadkit.DefaultZipfS, "zipf s parameter, must be > 1")
	flags.Float64("zipf-v", loadkit.DefaultZipfV, "zipf v parameter, must be >= 1")
	flags.Int64("seed", 0, "random seed for the scenario, 0 uses the clock")
	flags.String("data", "data.json", "records output file")
	flags.String("scenario", "read_scenario.json", "read scenario output file")

	rootCmd.AddCommand(datagenCmd)
}
