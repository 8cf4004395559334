package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/armistcxy/url-shorten/internal/loadkit"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Turn a read scenario into HTTP attack targets.",
	Long: `Writes one "GET http://<host>/short/<id>" line per read.

Example:
  loadkit targets --in read_scenario.json --out attack_targets.txt --host localhost:8088`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()

		in, _ := flags.GetString("in")
		out, _ := flags.GetString("out")
		host, _ := flags.GetString("host")
		sep, _ := flags.GetString("separator")

		reads, err := loadkit.ReadJSON[loadkit.ReadCase](in)
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}

		if err := loadkit.WriteTargets(f, reads, host, sep); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		logger.Info("targets written", "count", len(reads), "out", out)

		return nil
	},
}

func init() {
	flags := targetsCmd.Flags()
	flags.String("in", "read_scenario.json", "read scenario produced by datagen")
	flags.String("out", "attack_targets.txt", "targets output file")
	flags.String("host", "localhost:8088", "host and port of the service")
	flags.String("separator", loadkit.DefaultSeparator, "separator between key prefix and id")

	rootCmd.AddCommand(targetsCmd)
}
