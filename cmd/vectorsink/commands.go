package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/vectorsink"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/ingestion"
	"github.com/poiesic/vectorsink/storage"
	"github.com/urfave/cli/v2"
)

func (env *environment) open(c *cli.Context, cfg *vectorsink.Config) (*vectorsink.Database, error) {
	opts := append([]vectorsink.DatabaseOption{vectorsink.WithLogger(slog.Default())}, env.dbOptions...)
	db, err := vectorsink.Open(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (env *environment) createTableCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := env.open(c, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(c.Context); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	fmt.Fprintf(env.stdout, "Table %s ready (%s, dimension %d)\n",
		cfg.Store.TableName, cfg.Store.Driver, cfg.Embedding.Dimension)
	return nil
}

func (env *environment) ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var src documentSource
	if path := c.String("input"); path == "-" {
		if cfg.Ingestion.MaxRetries > 0 {
			slog.Warn("retries are not possible for stdin input", "max_retries", cfg.Ingestion.MaxRetries)
			cfg.Ingestion.MaxRetries = 0
		}
		src = newJSONLReader(env.stdin, c.Bool("generate-ids"))
	} else {
		src = &fileSource{path: path, generateIDs: c.Bool("generate-ids")}
	}

	db, err := env.open(c, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(c.Context); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	fmt.Fprintf(env.stderr, "Store: %s (%s)\n", cfg.Store.TableName, cfg.Store.Driver)
	fmt.Fprintf(env.stderr, "Embedding model: %s (dimension %d)\n", cfg.Embedding.Model, cfg.Embedding.Dimension)

	monitor := ingestion.NewProgressMonitor(env.stderr, c.Int("report-interval"))
	report, err := db.Ingest(c.Context, func() iter.Seq[core.Document] {
		return src.Documents()
	}, ingestion.WithMonitor(monitor))
	printReport(env.stdout, report)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if err := src.Err(); err != nil {
		return fmt.Errorf("reading input stopped early: %w", err)
	}
	return nil
}

// sampleDocuments are small enough to embed with any model.
var sampleDocuments = []core.Document{
	{Identity: "sample-elephants", Content: "Elephants are the largest land animals.", Metadata: map[string]any{"source": "wildlife"}},
	{Identity: "sample-climate", Content: "Climate change affects global temperatures.", Metadata: map[string]any{"source": "science"}},
	{Identity: "sample-bazar", Content: "bazar is a 150kg, 230cm tall polar bear", Metadata: map[string]any{"source": "books"}},
}

func (env *environment) seedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := env.open(c, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(c.Context); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	docs := make([]core.Document, len(sampleDocuments))
	copy(docs, sampleDocuments)
	if c.Bool("random-ids") {
		for i := range docs {
			docs[i].Identity = uuid.NewString()
		}
	}

	report, err := db.Ingest(c.Context, func() iter.Seq[core.Document] {
		return slices.Values(docs)
	}, ingestion.WithBatchSize(2))
	printReport(env.stdout, report)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	return nil
}

type rowView struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata"`
	Dimension int             `json:"dimension"`
	Head      []float32       `json:"embedding_head"`
}

func (env *environment) statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := env.open(c, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id := c.String("id")
	if id == "" {
		count, err := db.Store().Count(c.Context)
		if err != nil {
			return fmt.Errorf("failed to count rows: %w", err)
		}
		fmt.Fprintf(env.stdout, "%s: %d rows\n", cfg.Store.TableName, count)
		return nil
	}

	row, err := db.Store().Get(c.Context, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no row with id %q", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read row: %w", err)
	}

	view := rowView{
		ID:        row.Identity,
		Content:   row.Content,
		Metadata:  json.RawMessage("null"),
		Dimension: len(row.Vector),
		Head:      row.Vector[:min(len(row.Vector), 8)],
	}
	if row.Metadata != nil {
		view.Metadata = json.RawMessage(*row.Metadata)
	}
	enc := json.NewEncoder(env.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func printReport(w io.Writer, report *ingestion.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Ingested %d documents in %d batches (%d inserted, %d updated) in %s",
		report.Processed, report.Batches, report.Inserted, report.Updated, report.Duration.Round(time.Millisecond))
	if report.Attempts > 1 {
		fmt.Fprintf(w, " after %d attempts", report.Attempts)
	}
	fmt.Fprintln(w)
}
