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
	"path/filepath"
	"strings"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docent",
		Usage: "Answer questions from your organization's documents",
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
				Usage:   "Path to the YAML configuration file",
				Value:   "docent.yaml",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding the database and uploads (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Model service API: ollama or openai (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Model service base URL (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "chat-model",
				Usage: "Generation model name (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name (overrides the config file)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			serveCommand(),
			ingestCommand(),
			documentsCommand(),
			searchCommand(),
			askCommand(),
			reembedCommand(),
		},
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

// loadConfig reads the configuration file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
		cfg.UploadDir = filepath.Join(cfg.DataDir, "uploads")
	}
	overrides := map[string]*string{
		"provider":        &cfg.AI.Provider,
		"host":            &cfg.AI.BaseURL,
		"chat-model":      &cfg.AI.ChatModel,
		"embedding-model": &cfg.AI.EmbeddingModel,
	}
	for flag, dst := range overrides {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*docent.Database, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	db, err := docent.OpenConfigured(cfg, docent.WithLogger(slog.Default()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}
