// lifeboat serves passenger survival predictions over HTTP.
//
// Usage:
//
//	lifeboat serve   [--config=config.yaml]
//	lifeboat predict --pclass=1 --sex=female --age=29 --fare=211.3 [--url=http://localhost:8000/predict]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lifeboat/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lifeboat",
	Short: "Passenger survival prediction service",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
