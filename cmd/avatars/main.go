package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/avatars/internal"
	pkgconfig "github.com/starford/avatars/pkg/config"
)

type entryFunc func(ctx context.Context, opts ...internal.Option) error

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("base-url") {
		cfg.Pages.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("mirror-url") {
		cfg.Mirror.BaseURL = cmd.String("mirror-url")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func action(run entryFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(ctx, internal.WithConfig(cfg))
	}
}

func uris(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.URIs(ctx, cmd.Args().First(), internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "avatars",
		Usage: "Persona catalog generator and resource server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Public base URL catalog uris are built from (empty for relative uris)",
				Sources: cli.EnvVars("PAGES_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "mirror-url",
				Usage:   "Remote library the sync command downloads",
				Sources: cli.EnvVars("MCP_BASE_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Build the persona catalog and write it next to the personas",
				Action: action(internal.Generate),
			},
			{
				Name:   "watch",
				Usage:  "Generate the catalog and regenerate it whenever a persona changes",
				Action: action(internal.Watch),
			},
			{
				Name:   "serve",
				Usage:  "Serve resources over line-delimited JSON-RPC on stdin/stdout",
				Action: action(internal.Serve),
			},
			{
				Name:   "mcp",
				Usage:  "Serve resources and persona tools over MCP on stdin/stdout",
				Action: action(internal.MCP),
			},
			{
				Name:   "http",
				Usage:  "Host the library over HTTP",
				Action: action(internal.HTTP),
			},
			{
				Name:      "uris",
				Usage:     "Print every uri listed in a catalog",
				ArgsUsage: "[catalog]",
				Action:    uris,
			},
			{
				Name:   "sync",
				Usage:  "Mirror the published library into the working directory",
				Action: action(internal.Sync),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
