package main

import (
	"github.com/joho/godotenv"

	"github.com/jobinsight/jobinsight/internal/cmd"
)

func main() {
	// API keys usually live in a local .env next to the binary.
	_ = godotenv.Load()

	cmd.Execute()
}
