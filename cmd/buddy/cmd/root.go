package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkanyike/tradingbuddy/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "buddy",
	Short: "Options-trading dashboard backend",
	Long: `Buddy is the backend for an options paper-trading dashboard.

It provides:
  - Invite-gated user accounts with session auth
  - Paper-trading accounts with synthetic option fills
  - Strategy bookkeeping and stored backtest results
  - Synthetic quotes and Black-Scholes greek estimates
  - An admin console for users and invite codes`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
}

// loadConfig reads --config if given, otherwise the defaults.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	return cfg, nil
}
