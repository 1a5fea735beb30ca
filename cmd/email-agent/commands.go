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
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	emailagent "github.com/mlgkav/email-agent"
	"github.com/mlgkav/email-agent/ai"
	"github.com/mlgkav/email-agent/classify"
	"github.com/mlgkav/email-agent/config"
	"github.com/mlgkav/email-agent/core"
	"github.com/mlgkav/email-agent/ingest"
	"github.com/mlgkav/email-agent/mail"
	"github.com/mlgkav/email-agent/storage"
)

// signalContext returns a context cancelled by SIGINT/SIGTERM so a long
// ingestion stops at a batch boundary instead of mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildFetcher(cfg *config.Config) (mail.Fetcher, error) {
	if err := cfg.ValidateIMAP(); err != nil {
		return nil, err
	}
	return mail.NewIMAPFetcher(cfg.IMAPHost, cfg.IMAPPort, cfg.IMAPUser, cfg.IMAPPassword, cfg.IMAPFolder)
}

func buildAIConfig(cfg *config.Config) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(cfg.EmbeddingHost),
		ai.WithEmbeddingModel(cfg.EmbeddingModel),
		ai.WithGenerationHost(cfg.GenerationHost),
		ai.WithGenerationModel(cfg.GenerationModel),
		ai.WithAPIToken(cfg.APIToken),
	)
}

func listCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return err
	}

	// The list is a mailbox view, not an index view: fetch fresh so the
	// newest mail shows up even before it is ingested.
	result, err := fetcher.Fetch(ctx, core.Watermark{}, 0)
	if err != nil {
		return fmt.Errorf("fetching mailbox: %w", err)
	}

	messages := result.Messages
	// Newest first for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	limit := c.Int("limit")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tFROM\tSUBJECT\tSIZE\tHUMAN")

	shown := 0
	for _, msg := range messages {
		if limit > 0 && shown >= limit {
			break
		}
		if c.Bool("unread") && !msg.Unread {
			continue
		}

		classify.Apply(msg)
		if c.Bool("human-only") && msg.Classification != core.ClassificationHuman {
			continue
		}

		human := "no"
		if msg.Classification == core.ClassificationHuman {
			human = "yes"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			msg.Timestamp.Format("2006-01-02 15:04"),
			truncate(msg.From, 30),
			truncate(msg.Subject, 50),
			humanSize(msg.Size),
			human)
		shown++
	}

	return w.Flush()
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return err
	}

	agent, err := emailagent.NewAgent(cfg.DBPath, emailagent.WithAIConfig(buildAIConfig(cfg)))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer agent.Close()

	orch, err := agent.NewOrchestrator(
		ingest.WithBatchSize(c.Int("batch-size")),
		ingest.WithMaxAttempts(c.Int("max-retries")))
	if err != nil {
		return err
	}
	defer orch.Release()

	coord, err := agent.NewCoordinator(fetcher, orch,
		ingest.WithChunkParams(cfg.ChunkMaxLen, cfg.ChunkOverlap))
	if err != nil {
		return err
	}

	summary, err := coord.Run(ctx, cfg.IMAPFolder, c.Int("limit"))
	if summary != nil {
		printSummary(summary)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if summary.Failed() {
		return fmt.Errorf("%d chunks failed to embed", len(summary.Failures))
	}

	return nil
}

func printSummary(summary *core.RunSummary) {
	fmt.Fprintf(os.Stderr, "Mailbox:        %s\n", summary.Mailbox)
	fmt.Fprintf(os.Stderr, "Fetched:        %d\n", summary.Fetched)
	fmt.Fprintf(os.Stderr, "Skipped:        %d\n", summary.Skipped)
	fmt.Fprintf(os.Stderr, "Chunks indexed: %d\n", summary.ChunksIndexed)
	fmt.Fprintf(os.Stderr, "Failures:       %d\n", len(summary.Failures))
	fmt.Fprintf(os.Stderr, "Duration:       %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(10 * time.Millisecond))
}

func queryCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	question := c.Args().First()
	if question == "" {
		return fmt.Errorf("usage: email-agent query <question>")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	agent, err := emailagent.NewAgent(cfg.DBPath, emailagent.WithAIConfig(buildAIConfig(cfg)))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer agent.Close()

	pipeline, err := agent.NewQueryPipeline()
	if err != nil {
		return err
	}

	var filter *storage.Filter
	if c.String("from") != "" || c.Bool("human-only") {
		filter = &storage.Filter{From: c.String("from")}
		if c.Bool("human-only") {
			filter.Classification = core.ClassificationHuman
		}
	}

	answer, cited, err := pipeline.Answer(ctx, question, c.Int("limit"), filter)
	if err != nil {
		return err
	}

	if answer.NoContext {
		fmt.Println("No relevant mail found for that question.")
		return nil
	}

	fmt.Println(answer.Text)
	fmt.Println()
	fmt.Println("Sources:")
	for i, entry := range cited {
		fmt.Printf("  [%d] %s - %s (%s)\n",
			i+1, entry.From, entry.Subject, entry.Timestamp.Format("2006-01-02"))
	}

	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	messageID := c.Args().First()
	if messageID == "" {
		return fmt.Errorf("usage: email-agent delete <message-id>")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	agent, err := emailagent.NewAgent(cfg.DBPath, emailagent.WithAIConfig(buildAIConfig(cfg)))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer agent.Close()

	deleted, err := agent.Index().DeleteMessage(ctx, core.IDFromContent(messageID))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Deleted %d chunks\n", deleted)
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func humanSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(size)/float64(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(size)/float64(1<<10))
	default:
		return fmt.Sprintf("%dB", size)
	}
}
