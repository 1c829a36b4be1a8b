package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pingLat float64
	pingLon float64
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Probe each provider and report availability",
	Long:  "Runs one fetch per provider at the probe point and reports whether the provider answered. Useful for checking which upstream services are currently reachable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline("lookup")
		if err != nil {
			return err
		}

		var failures int
		for _, src := range env.Sources {
			recs, err := src.Fetch(cmd.Context(), pingLat, pingLon, cfg.Pipeline.BaseRadiusM)
			switch {
			case err != nil:
				failures++
				fmt.Printf("%-10s FAIL  %v\n", src.Name(), err)
			default:
				fmt.Printf("%-10s OK    %d records\n", src.Name(), len(recs))
			}
		}

		if failures > 0 {
			fmt.Printf("%d of %d providers failing\n", failures, len(env.Sources))
		}
		return nil
	},
}

func init() {
	// Default probe point: central Tel Aviv, covered by every provider.
	pingCmd.Flags().Float64Var(&pingLat, "lat", 32.0809, "probe latitude")
	pingCmd.Flags().Float64Var(&pingLon, "lon", 34.7806, "probe longitude")
	rootCmd.AddCommand(pingCmd)
}
