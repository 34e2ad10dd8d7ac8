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
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/vecport/ai"
	"github.com/poiesic/vecport/ai/openai"
	"github.com/poiesic/vecport/backfill"
	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/importer"
	"github.com/poiesic/vecport/ledger"
	"github.com/poiesic/vecport/snapshot"
	"github.com/poiesic/vecport/storage"
	"github.com/poiesic/vecport/storage/postgres"
)

func main() {
	app := &cli.App{
		Name:  "vecport",
		Usage: "Batch importer for chunk, embedding and conversation snapshots into PostgreSQL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Import a snapshot directory into the target database",
				Action: importCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "snapshot",
						Aliases:  []string{"s"},
						Usage:    "Path to the snapshot directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "chunk-batch-size",
						Usage: "Number of chunks per transactional batch",
						Value: 200,
					},
					&cli.IntFlag{
						Name:  "embedding-batch-size",
						Usage: "Number of embeddings per transactional batch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "conversation-batch-size",
						Usage: "Number of conversations per transactional batch",
						Value: 200,
					},
					&cli.StringFlag{
						Name:  "conflict-mode",
						Usage: "Embedding conflict handling (skip, overwrite)",
						Value: "skip",
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Skip embeddings already present in the target store",
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Abort a collection on the first failed batch",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate and report without writing",
					},
					&cli.StringFlag{
						Name:  "ledger",
						Usage: "Path to the resume ledger database (empty disables it)",
					},
					&cli.StringFlag{
						Name:  "report-json",
						Usage: "Write the run report as JSON to this path",
					},
				),
			},
			{
				Name:   "backfill",
				Usage:  "Generate embeddings for chunks that have none",
				Action: backfillCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "conflict-mode",
						Usage: "Embedding conflict handling (skip, overwrite)",
						Value: "skip",
					},
					&cli.IntFlag{
						Name:  "fetch-size",
						Usage: "Number of missing chunks fetched per page",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "embed-batch-size",
						Usage: "Number of texts per embedder call",
						Value: 16,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker pool size for concurrent generation (0 = CPU count / 2)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of chunks to backfill (0 = all)",
					},
				),
			},
			{
				Name:   "verify",
				Usage:  "Verify the target schema contract and report row counts",
				Action: verifyCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:    "snapshot",
						Aliases: []string{"s"},
						Usage:   "Snapshot directory to compare row counts against (optional)",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// commonFlags are shared by every subcommand that talks to the store.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML run-parameter file (flags win over file values)",
		},
		&cli.StringFlag{
			Name:  "dsn",
			Usage: "PostgreSQL connection string",
		},
		&cli.IntFlag{
			Name:  "vector-dim",
			Usage: "Fixed vector width of the target embedding column",
			Value: 768,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for transient failures",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 1 * time.Second,
		},
		&cli.DurationFlag{
			Name:  "call-timeout",
			Usage: "Deadline applied to each store call",
			Value: 30 * time.Second,
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N records",
			Value: 100,
		},
	}
}

// openStore connects to the target database, merging the DSN from
// flags and file config. Query logging follows the debug log level.
func openStore(ctx context.Context, c *cli.Context, file *fileConfig) (storage.Store, error) {
	dsn := stringSetting(c, "dsn", file.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required (flag or config file)")
	}

	var opts []postgres.Option
	if strings.EqualFold(c.String("log-level"), "debug") {
		opts = append(opts, postgres.WithQueryLogging())
	}
	return postgres.Open(ctx, dsn, opts...)
}

func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func importCommand(c *cli.Context) error {
	ctx, stop := runContext()
	defer stop()

	file, err := loadFileConfig(c)
	if err != nil {
		return err
	}

	conflictMode, err := storage.ParseConflictMode(stringSetting(c, "conflict-mode", file.ConflictMode))
	if err != nil {
		return err
	}
	retryDelay, err := durationSetting(c, "retry-delay", file.RetryDelay)
	if err != nil {
		return err
	}
	callTimeout, err := durationSetting(c, "call-timeout", file.CallTimeout)
	if err != nil {
		return err
	}

	config := &importer.Config{
		VectorDim:             intSetting(c, "vector-dim", file.VectorDim),
		ChunkBatchSize:        intSetting(c, "chunk-batch-size", file.ChunkBatchSize),
		EmbeddingBatchSize:    intSetting(c, "embedding-batch-size", file.EmbeddingBatchSize),
		ConversationBatchSize: intSetting(c, "conversation-batch-size", file.ConversationBatchSize),
		ConflictMode:          conflictMode,
		Resume:                boolSetting(c, "resume", file.Resume),
		Strict:                boolSetting(c, "strict", file.Strict),
		DryRun:                boolSetting(c, "dry-run", file.DryRun),
		MaxRetries:            intSetting(c, "max-retries", file.MaxRetries),
		RetryDelay:            retryDelay,
		CallTimeout:           callTimeout,
		ReportInterval:        intSetting(c, "report-interval", file.ReportInterval),
	}
	if err := config.Validate(); err != nil {
		return err
	}

	store, err := openStore(ctx, c, file)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	source := snapshot.NewSource(c.String("snapshot"))

	var opts []importer.Option
	if ledgerPath := stringSetting(c, "ledger", file.LedgerPath); ledgerPath != "" {
		resumeLedger, err := ledger.Open(ledgerPath, false)
		if err != nil {
			return fmt.Errorf("failed to open resume ledger: %w", err)
		}
		defer resumeLedger.Close()
		opts = append(opts, importer.WithLedger(resumeLedger))
	}

	pipeline, err := importer.NewPipeline(store, source, config, os.Stderr, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Snapshot: %s\n", source.Dir())
	fmt.Fprintf(os.Stderr, "Vector dimension: %d\n", config.VectorDim)
	fmt.Fprintf(os.Stderr, "Conflict mode: %s\n", config.ConflictMode)
	fmt.Fprintln(os.Stderr)

	report, runErr := pipeline.Run(ctx)

	// The report is always printed: a failed run's partial counts are
	// exactly what the operator needs to resume.
	report.WriteText(os.Stderr)
	if jsonPath := stringSetting(c, "report-json", file.ReportJSON); jsonPath != "" {
		if err := writeReportJSON(report, jsonPath); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("import failed: %w", runErr)
	}
	return nil
}

func writeReportJSON(report *importer.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := report.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func backfillCommand(c *cli.Context) error {
	ctx, stop := runContext()
	defer stop()

	file, err := loadFileConfig(c)
	if err != nil {
		return err
	}

	conflictMode, err := storage.ParseConflictMode(stringSetting(c, "conflict-mode", file.ConflictMode))
	if err != nil {
		return err
	}
	retryDelay, err := durationSetting(c, "retry-delay", file.RetryDelay)
	if err != nil {
		return err
	}
	callTimeout, err := durationSetting(c, "call-timeout", file.CallTimeout)
	if err != nil {
		return err
	}

	config := &backfill.Config{
		VectorDim:      intSetting(c, "vector-dim", file.VectorDim),
		FetchSize:      intSetting(c, "fetch-size", file.FetchSize),
		EmbedBatchSize: intSetting(c, "embed-batch-size", file.EmbedBatchSize),
		ConflictMode:   conflictMode,
		Limit:          c.Int("limit"),
		MaxRetries:     intSetting(c, "max-retries", file.MaxRetries),
		RetryDelay:     retryDelay,
		CallTimeout:    callTimeout,
		ReportInterval: intSetting(c, "report-interval", file.ReportInterval),
	}
	if err := config.Validate(); err != nil {
		return err
	}

	host := stringSetting(c, "embedding-host", file.EmbeddingHost)
	model := stringSetting(c, "embedding-model", file.EmbeddingModel)
	aiConfig := ai.NewConfig(
		ai.WithHost(host),
		ai.WithModel(model),
		ai.WithDimension(config.VectorDim),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := openStore(ctx, c, file)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	var opts []backfill.Option
	if poolSize := intSetting(c, "pool-size", file.PoolSize); poolSize > 0 {
		opts = append(opts, backfill.WithPoolSize(poolSize))
	}

	backfiller, err := backfill.NewBackfiller(store, embedder, config, os.Stderr, opts...)
	if err != nil {
		return err
	}
	defer backfiller.Release()

	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", host)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", model)
	fmt.Fprintf(os.Stderr, "Conflict mode: %s\n", config.ConflictMode)
	fmt.Fprintln(os.Stderr)

	result, err := backfiller.Run(ctx)
	if result != nil {
		fmt.Fprintf(os.Stderr, "scanned: %d written: %d skipped: %d rejected: %d failed: %d (%.1fs)\n",
			result.Scanned, result.Written, result.Skipped, result.Rejected, result.Failed,
			result.ElapsedSeconds)
	}
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	ctx, stop := runContext()
	defer stop()

	file, err := loadFileConfig(c)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, c, file)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	vectorDim := intSetting(c, "vector-dim", file.VectorDim)
	if err := store.VerifySchema(ctx, vectorDim); err != nil {
		return fmt.Errorf("schema verification failed: %w", err)
	}
	fmt.Fprintf(os.Stdout, "schema OK (vector dimension %d)\n", vectorDim)

	var source *snapshot.Source
	if dir := stringSetting(c, "snapshot", file.SnapshotDir); dir != "" {
		source = snapshot.NewSource(dir)
	}

	for _, collection := range core.Collections() {
		count, err := store.Count(ctx, collection)
		if err != nil {
			return fmt.Errorf("counting %s: %w", collection, err)
		}

		if source == nil {
			fmt.Fprintf(os.Stdout, "%-15s store=%d\n", collection, count)
			continue
		}

		sourceCount, digest, err := sourceSummary(source, collection)
		if err != nil {
			return err
		}
		marker := " "
		if int64(sourceCount) != count {
			marker = "!"
		}
		fmt.Fprintf(os.Stdout, "%-15s store=%d source=%d %s digest=%s\n",
			collection, count, sourceCount, marker, digest)
	}
	return nil
}

func sourceSummary(source *snapshot.Source, collection core.Collection) (int, string, error) {
	digest, err := source.Digest(collection)
	if err != nil {
		return 0, "", fmt.Errorf("digesting %s: %w", collection, err)
	}

	var count int
	switch collection {
	case core.CollectionChunks:
		records, err := source.Chunks()
		if err != nil {
			return 0, "", err
		}
		count = len(records)
	case core.CollectionEmbeddings:
		records, err := source.Embeddings()
		if err != nil {
			return 0, "", err
		}
		count = len(records)
	case core.CollectionConversations:
		records, err := source.Conversations()
		if err != nil {
			return 0, "", err
		}
		count = len(records)
	}
	return count, digest, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
