package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/lostfound-api/internal/cli"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/store"
)

func main() {
	_ = godotenv.Load()

	open := func(ctx context.Context) (*store.Set, error) {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return store.Open(ctx, cfg)
	}
	if err := cli.NewRootCommand(open, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
