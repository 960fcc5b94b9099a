package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/docent/server"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API",
		Action: serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides the config file)",
			},
		},
	}
}

func serveAction(c *cli.Context) error {
	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	addr := cfg.ListenAddr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	srv, err := server.New(server.Dependencies{
		Documents: db,
		Search:    db.Searcher(),
		Chat:      db.Chat(),
		Health:    db,
	},
		server.WithAddr(addr),
		server.WithMaxUploadBytes(cfg.MaxUploadBytes()),
		server.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Ping(ctx); err != nil {
		slog.Warn("model service not reachable yet", "host", cfg.AI.BaseURL, "err", err)
	}

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
