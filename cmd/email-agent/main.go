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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "email-agent",
		Usage: "Index an IMAP mailbox and answer questions over it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a .env file (default: ./.env if present)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List recent mailbox messages with their classification",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of messages to list",
						Value:   25,
					},
					&cli.BoolFlag{
						Name:  "unread",
						Usage: "Only list unread messages",
					},
					&cli.BoolFlag{
						Name:  "human-only",
						Usage: "Only list messages classified as human correspondence",
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Fetch, classify, chunk, embed, and index new mail",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of messages to ingest (0 = all new mail)",
						Value:   0,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks per embedding service call",
						Value: 16,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding batches",
						Value: 3,
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Ask a question over the indexed mailbox",
				ArgsUsage: "<question>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to retrieve",
						Value:   5,
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Only use mail whose sender contains this string",
					},
					&cli.BoolFlag{
						Name:  "human-only",
						Usage: "Only use mail classified as human correspondence",
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove a message's chunks from the index",
				ArgsUsage: "<message-id>",
				Action:    deleteCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
