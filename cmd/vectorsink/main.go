// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/vectorsink"
	"github.com/urfave/cli/v2"
)

// environment is what commands read from and write to. Tests replace it.
type environment struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	dbOptions []vectorsink.DatabaseOption
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(&environment{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr})
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(env *environment) *cli.App {
	return &cli.App{
		Name:      "vectorsink",
		Usage:     "Embed documents and upsert them into a vector table",
		Reader:    env.stdin,
		Writer:    env.stdout,
		ErrWriter: env.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				EnvVars: []string{"VECTORSINK_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			return setupLogger(c, env.stderr)
		},
		Commands: []*cli.Command{
			{
				Name:   "create-table",
				Usage:  "Create the document table if it does not exist",
				Action: env.createTableCommand,
				Flags:  connectionFlags(),
			},
			{
				Name:      "ingest",
				Usage:     "Embed and upsert documents read as JSON lines",
				ArgsUsage: " ",
				Action:    env.ingestCommand,
				Flags: append(connectionFlags(), append(pipelineFlags(),
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "JSONL file with one {\"id\",\"content\",\"metadata\"} object per line (- for stdin)",
						Value:   "-",
					},
					&cli.BoolFlag{
						Name:  "generate-ids",
						Usage: "Derive a UUID from the content of documents without an id",
					},
				)...),
			},
			{
				Name:   "seed",
				Usage:  "Ingest a few sample documents",
				Action: env.seedCommand,
				Flags: append(connectionFlags(),
					&cli.BoolFlag{
						Name:  "random-ids",
						Usage: "Give sample documents fresh random ids instead of fixed ones",
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Show the row count, or one row",
				Action: env.statsCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Identity of a row to show",
					},
				),
			},
		},
	}
}

// connectionFlags override the store and embedding sections of the config.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "driver",
			Usage: "Store driver (postgres, sqlite, badger, memory)",
		},
		&cli.StringFlag{
			Name:    "dsn",
			Aliases: []string{"d"},
			Usage:   "Postgres connection string, SQLite file or Badger directory",
		},
		&cli.StringFlag{
			Name:  "table",
			Usage: "Table name, optionally schema-qualified",
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Embedding dimension",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.Float64Flag{
			Name:  "rps",
			Usage: "Maximum embedding requests per second (0 for unlimited)",
		},
	}
}

// pipelineFlags override the ingestion section of the config.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of documents committed per transaction",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent embedding calls within a batch",
		},
		&cli.BoolFlag{
			Name:  "normalize",
			Usage: "Scale vectors to unit length",
		},
		&cli.BoolFlag{
			Name:  "bulk",
			Usage: "Embed each batch with a single request",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Re-run a failed ingestion this many times (file input only)",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N documents",
			Value: 1000,
		},
	}
}

func setupLogger(c *cli.Context, w io.Writer) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
