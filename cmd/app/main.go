// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/pii-vault/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "pii-vault",
		Usage:   "Field-level encryption vault for claims intake PII",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "worker",
				Usage: "Start the background rewrap worker and operational HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunWorker(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-root-key",
				Usage: "Generate a new root key for field encryption",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:    "version",
						Aliases: []string{"v"},
						Value:   1,
						Usage:   "Root key version number",
					},
					&cli.StringFlag{
						Name:  "kms-provider",
						Usage: "KMS provider (gcpkms, awskms, azurekeyvault, hashivault, localsecrets)",
					},
					&cli.StringFlag{
						Name:  "kms-key-uri",
						Usage: "URI of the KMS wrapping key",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateRootKey(
						uint(cmd.Uint("version")),
						cmd.String("kms-provider"),
						cmd.String("kms-key-uri"),
					)
				},
			},
			{
				Name:  "rotate-root-key",
				Usage: "Generate a new root key version on top of the configured chain",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateRootKey(ctx)
				},
			},
			{
				Name:  "retire-root-key",
				Usage: "Verify a root key version has no records and can be removed",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:     "version",
						Aliases:  []string{"v"},
						Required: true,
						Usage:    "Root key version to retire",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRetireRootKey(ctx, uint(cmd.Uint("version")))
				},
			},
			{
				Name:  "rewrap-records",
				Usage: "Re-encrypt all records protected by non-active root key versions",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRewrapRecords(ctx)
				},
			},
			{
				Name:  "erase-subject",
				Usage: "Scrub all protected records and auth state for a data subject",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subject-id",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "Data subject ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunEraseSubject(ctx, cmd.String("subject-id"), cmd.String("format"))
				},
			},
			{
				Name:  "clean-expired",
				Usage: "Delete expired lockout counters and authentication tokens",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanExpired(ctx, cmd.String("format"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
