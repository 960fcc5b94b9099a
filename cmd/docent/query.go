package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/poiesic/docent/chat"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/storage"
	"github.com/urfave/cli/v2"
)

var errNoQuery = errors.New("a query is required")

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search documents by meaning, keyword or both",
		ArgsUsage: "QUERY...",
		Action:    searchAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Search mode (vector, keyword, hybrid)",
				Value:   string(search.ModeHybrid),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Report each search stage on stderr",
			},
		},
	}
}

func searchAction(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errNoQuery
	}
	mode, err := search.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = &stageMonitor{w: c.App.ErrWriter}
	}

	hits, err := db.Searcher().SearchWithMonitor(c.Context, query, mode, monitor)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Found %d documents\n", len(hits))
	for i, hit := range hits {
		score := "keyword"
		if hit.Score != nil {
			score = fmt.Sprintf("%.4f", *hit.Score)
		}
		fmt.Fprintf(c.App.Writer, "%d: %s [%s]\n   %s\n", i+1, hit.Filename, score, strings.ReplaceAll(hit.Snippet, "\n", " "))
	}
	return nil
}

// stageMonitor prints each search stage with the time since the search began.
type stageMonitor struct {
	w     io.Writer
	start time.Time
}

var _ search.SearchMonitor = (*stageMonitor)(nil)

func (m *stageMonitor) Start(query string, mode search.Mode) {
	m.start = time.Now()
	fmt.Fprintf(m.w, "searching %q (%s)\n", query, mode)
}

func (m *stageMonitor) AfterVectorSearch(chunks []*core.RetrievedChunk) {
	fmt.Fprintf(m.w, "[%v] vector search: %d chunks\n", time.Since(m.start).Round(time.Millisecond), len(chunks))
	for _, rc := range chunks {
		fmt.Fprintf(m.w, "    %.4f %s chunk %d\n", rc.Score, rc.Filename, rc.Chunk.Index+1)
	}
}

func (m *stageMonitor) VectorSearchFailed(err error) {
	fmt.Fprintf(m.w, "[%v] vector search failed, keyword only: %v\n", time.Since(m.start).Round(time.Millisecond), err)
}

func (m *stageMonitor) AfterKeywordSearch(matches []*storage.KeywordMatch) {
	fmt.Fprintf(m.w, "[%v] keyword search: %d chunks\n", time.Since(m.start).Round(time.Millisecond), len(matches))
}

func (m *stageMonitor) Finish(hits []*core.SearchHit) {
	fmt.Fprintf(m.w, "[%v] done: %d documents\n", time.Since(m.start).Round(time.Millisecond), len(hits))
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question answered from the documents",
		ArgsUsage: "QUESTION...",
		Action:    askAction,
		Flags: []cli.Flag{
			ownerFlag,
			&cli.StringFlag{
				Name:    "session",
				Aliases: []string{"s"},
				Usage:   "Continue an existing session instead of starting a new one",
			},
			&cli.BoolFlag{
				Name:  "stream",
				Usage: "Print the answer as it is generated",
				Value: true,
			},
		},
	}
}

func askAction(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if err := core.ValidateQuestion(question); err != nil {
		return err
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := c.Context
	owner := c.String("owner")
	sessionID := core.ID(c.String("session"))
	if sessionID == "" {
		session, err := db.Chat().CreateSession(ctx, owner, "")
		if err != nil {
			return err
		}
		sessionID = session.ID
	}

	var sources []core.Source
	if c.Bool("stream") {
		for ev := range db.Chat().AskStream(ctx, owner, sessionID, question) {
			switch ev.Type {
			case chat.EventSources:
				sources = ev.Sources
			case chat.EventToken:
				fmt.Fprint(c.App.Writer, ev.Content)
			case chat.EventDone:
				fmt.Fprintln(c.App.Writer)
			case chat.EventError:
				return ev.Err
			}
		}
	} else {
		answer, err := db.Chat().Ask(ctx, owner, sessionID, question)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, answer.Text)
		sources = answer.Sources
	}

	if len(sources) > 0 {
		fmt.Fprintln(c.App.Writer, "\nSources:")
		for _, src := range sources {
			fmt.Fprintf(c.App.Writer, "  %s (%.4f)\n", src.Filename, src.Score)
		}
	}
	fmt.Fprintf(c.App.ErrWriter, "session: %s\n", sessionID)
	return nil
}
