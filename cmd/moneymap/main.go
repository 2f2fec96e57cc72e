// Package main provides the entry point for the moneymap CLI application.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/moneymap/moneymap/pkg/logging"
)

func main() {
	// A missing .env file is fine; everything can come from the real
	// environment.
	_ = godotenv.Load()

	logger := logging.Setup(logging.DefaultConfig())

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
