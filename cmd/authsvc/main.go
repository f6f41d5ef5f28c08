// Package main is the entrypoint for the AgriBridge auth service.
// It serves phone verification, session introspection, and profile endpoints.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/agribridge/auth-service/internal/config"
	"github.com/agribridge/auth-service/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:           "authsvc",
		PortFromConfig: func(cfg *config.Config) int { return cfg.Auth.HTTPPort },
		Setup:          setup,
	}, nil)
}
