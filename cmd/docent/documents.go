package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/poiesic/docent"
	"github.com/poiesic/docent/core"
	"github.com/urfave/cli/v2"
)

var ownerFlag = &cli.StringFlag{
	Name:    "owner",
	Aliases: []string{"u"},
	Usage:   "Owner id recorded on documents and sessions",
	Value:   "cli",
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Upload documents and wait until they are processed",
		ArgsUsage: "FILE...",
		Action:    ingestAction,
		Flags:     []cli.Flag{ownerFlag},
	}
}

func ingestAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	owner := c.String("owner")
	var ids []core.ID
	for _, path := range c.Args().Slice() {
		doc, err := uploadFile(c, db, owner, path)
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
			continue
		}
		ids = append(ids, doc.ID)
	}

	db.Pipeline().Wait()

	failed := c.NArg() - len(ids)
	out := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "ID\tFILE\tSTATUS\tCHUNKS\tERROR")
	for _, id := range ids {
		doc, err := db.GetDocument(c.Context, owner, id)
		if err != nil {
			return err
		}
		if doc.Status != core.StatusCompleted {
			failed++
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\n", doc.ID, doc.Filename, doc.Status, doc.ChunkCount, doc.ErrorMessage)
	}
	if err := out.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files were not ingested", failed, c.NArg())
	}
	return nil
}

func uploadFile(c *cli.Context, db *docent.Database, owner, path string) (*core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return db.Upload(c.Context, owner, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), f, info.Size())
}

func documentsCommand() *cli.Command {
	return &cli.Command{
		Name:   "documents",
		Usage:  "List uploaded documents",
		Action: documentsAction,
		Flags:  []cli.Flag{ownerFlag},
	}
}

func documentsAction(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := db.ListDocuments(c.Context, c.String("owner"))
	if err != nil {
		return err
	}

	out := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "ID\tFILE\tTYPE\tSIZE\tSTATUS\tCHUNKS\tCREATED")
	for _, doc := range docs {
		fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			doc.ID, doc.Filename, doc.Type, doc.Size, doc.Status, doc.ChunkCount, doc.CreatedAt.Format("2006-01-02 15:04"))
	}
	return out.Flush()
}
