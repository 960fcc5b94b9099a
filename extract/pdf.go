package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// newPDFExtractor returns a Func that joins the text of every page with a
// blank line. Pages that cannot be decoded are skipped.
func newPDFExtractor(logger *slog.Logger) Func {
	return func(ctx context.Context, path string) (string, error) {
		f, reader, err := pdf.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		var parts []string
		for i := 1; i <= reader.NumPage(); i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			page := reader.Page(i)
			if page.V.IsNull() {
				continue
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				logger.Warn("skipping unreadable pdf page", "path", path, "page", i, "err", err)
				continue
			}
			if text = strings.TrimSpace(text); text != "" {
				parts = append(parts, text)
			}
		}

		if len(parts) == 0 {
			logger.Warn("no text found in pdf, it may contain only images", "path", path)
		}
		return strings.Join(parts, "\n\n"), nil
	}
}
