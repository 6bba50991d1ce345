// Command finboard-seed imports a category tree and a transaction history
// into the SQLite store and announces the change over AMQP.
//
// The dataset comes either from seed files (-categories, -transactions) or
// from another configured backend (-from sheets|rest|memory).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/cli"
	"finboard/internal/config"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/storage"
	"finboard/internal/taxonomy"
)

type options struct {
	categories   string
	transactions string
	from         string
	dbPath       string
	dryRun       bool
	timeout      time.Duration
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	var opts options
	flag.StringVar(&opts.categories, "categories", "", "category tree seed file (.json, .yaml or .yml)")
	flag.StringVar(&opts.transactions, "transactions", "", "transactions seed file (JSON array)")
	flag.StringVar(&opts.from, "from", "", "copy the dataset from a configured backend instead of files (memory, sheets, rest)")
	flag.StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validate the dataset without writing it")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentSeed)

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("Seed failed", log.FieldError, err, log.FieldOperation, log.OpImport)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) error {
	tree, txs, source, err := loadDataset(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	skipped := 0
	for _, tx := range txs {
		if !tx.Bucketable() {
			skipped++
		}
	}
	logger.InfoContext(ctx, "Dataset loaded",
		"source", source,
		"nodes", tree.Len(),
		log.FieldTransactions, len(txs),
		log.FieldSkipped, skipped)

	if opts.dryRun {
		logger.InfoContext(ctx, "Dry run: nothing written")
		return nil
	}

	repo, err := storage.NewSQLiteRepository(opts.dbPath, logger)
	if err != nil {
		return fmt.Errorf("open SQLite store: %w", err)
	}
	defer repo.Close()

	if err := repo.ReplaceDataset(ctx, tree.Nested(), txs); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	logger.InfoContext(ctx, "Dataset imported", "db_path", opts.dbPath)

	if !cfg.AMQPEnabled() {
		logger.InfoContext(ctx, "AMQP disabled - running servers pick the change up on their next periodic refresh")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		// The import itself succeeded.
		logger.WarnContext(ctx, "AMQP unavailable, change not announced", log.FieldError, err)
		return nil
	}
	defer client.Close()
	if err := client.PublishDatasetChanged(ctx, amqp.NewDatasetChangedMessage(source, len(txs))); err != nil {
		logger.WarnContext(ctx, "Failed to announce dataset change", log.FieldError, err, log.FieldOperation, log.OpPublish)
	}
	return nil
}

// loadDataset reads the dataset from files or from another backend and
// returns a label naming where it came from.
func loadDataset(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) (*taxonomy.Tree, []core.Transaction, string, error) {
	if opts.from != "" {
		if opts.categories != "" || opts.transactions != "" {
			return nil, nil, "", errors.New("-from cannot be combined with -categories or -transactions")
		}
		return loadFromBackend(ctx, cfg, opts.from, logger)
	}
	if opts.categories == "" {
		return nil, nil, "", errors.New("-categories is required unless -from is set")
	}

	tree, err := taxonomy.LoadFile(opts.categories)
	if err != nil {
		return nil, nil, "", err
	}
	var txs []core.Transaction
	if opts.transactions != "" {
		data, err := os.ReadFile(opts.transactions)
		if err != nil {
			return nil, nil, "", fmt.Errorf("read transactions: %w", err)
		}
		if txs, err = core.DecodeTransactions(data); err != nil {
			return nil, nil, "", fmt.Errorf("decode %s: %w", opts.transactions, err)
		}
	}
	return tree, txs, "seed-files", nil
}

func loadFromBackend(ctx context.Context, cfg *config.Config, from string, logger *log.Logger) (*taxonomy.Tree, []core.Transaction, string, error) {
	if from == string(backend.SQLiteBackend) {
		return nil, nil, "", errors.New("-from sqlite would copy the store onto itself")
	}
	appCfg := *cfg
	appCfg.DataBackend = from
	backendCfg, err := backend.FromAppConfig(&appCfg)
	if err != nil {
		return nil, nil, "", err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, "", err
	}
	defer result.Close()

	tree, err := result.Backend.CategoryTree(ctx)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load category tree from %s: %w", from, err)
	}
	txs, err := result.Backend.ListTransactions(ctx)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load transactions from %s: %w", from, err)
	}
	return tree, txs, from, nil
}
