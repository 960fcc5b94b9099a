package main

import (
	"fmt"

	"github.com/poiesic/docent/reembed"
	"github.com/urfave/cli/v2"
)

func reembedCommand() *cli.Command {
	return &cli.Command{
		Name:   "reembed",
		Usage:  "Recompute every stored chunk embedding with the configured embedding model",
		Action: reembedAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "chunks embedded and written per batch",
				Value: reembed.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "print progress every N chunks",
				Value: 100,
			},
		},
	}
}

func reembedAction(c *cli.Context) error {
	for _, name := range []string{"batch-size", "report-interval"} {
		if c.Int(name) <= 0 {
			return fmt.Errorf("--%s must be positive, got %d", name, c.Int(name))
		}
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	out := c.App.ErrWriter
	r, err := db.NewReembedder(&reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
	}, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Store: %s\nModel: %s @ %s\n\n", cfg.DatabasePath(), cfg.AI.EmbeddingModel, cfg.AI.BaseURL)
	if _, err := r.Run(c.Context); err != nil {
		return fmt.Errorf("reembed: %w", err)
	}
	return nil
}
