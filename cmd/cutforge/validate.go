package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cutforge/cutforge/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file and print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		fmt.Printf("config %s is valid\n\n", configPath)
		fmt.Printf("  llm provider : %s / %s\n", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
		fmt.Printf("  stt provider : %s / %s\n", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
		fmt.Printf("  output dir   : %s\n", cfg.Dataset.OutputDir)
		if cfg.Dataset.PostgresDSN != "" {
			fmt.Println("  catalog      : postgres")
		} else {
			fmt.Println("  catalog      : (disabled)")
		}
		if cfg.Run.CacheDir != "" {
			fmt.Printf("  cache dir    : %s\n", cfg.Run.CacheDir)
		}
		fmt.Printf("  concurrency  : %d\n", cfg.Run.Concurrency)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
