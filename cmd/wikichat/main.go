package main

import (
	"log/slog"
	"os"

	"wikichat/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:           "wikichat",
		Short:         "Chat with an LLM agent that can look things up on Wikipedia",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("wikichat failed", "error", err)
		os.Exit(1)
	}
}
