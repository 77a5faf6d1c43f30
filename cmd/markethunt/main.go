package main

import (
	"os"

	"github.com/wonny/markethunt/backend/cmd/markethunt/commands"
)

// main is the entry point for the markethunt CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/markethunt [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
