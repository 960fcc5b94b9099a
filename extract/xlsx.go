package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxSheetRows caps the non-empty rows read from one sheet.
const MaxSheetRows = 10000

// newXLSXExtractor returns a Func that emits a "[Sheet: name]" line per sheet
// followed by its non-empty rows, cells joined by tabs.
func newXLSXExtractor(logger *slog.Logger, maxRows int) Func {
	return func(ctx context.Context, path string) (string, error) {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		var parts []string
		for _, sheet := range f.GetSheetList() {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("[Sheet: %s]", sheet))

			rows, err := f.Rows(sheet)
			if err != nil {
				return "", fmt.Errorf("sheet %q: %w", sheet, err)
			}

			count := 0
			for rows.Next() {
				cols, err := rows.Columns()
				if err != nil {
					rows.Close()
					return "", fmt.Errorf("sheet %q: %w", sheet, err)
				}
				line := strings.Join(cols, "\t")
				if strings.TrimSpace(line) == "" {
					continue
				}
				if count == maxRows {
					parts = append(parts, fmt.Sprintf("... (%s: truncated after %d rows)", sheet, maxRows))
					logger.Warn("sheet truncated", "path", path, "sheet", sheet, "rows", maxRows)
					break
				}
				parts = append(parts, line)
				count++
			}
			if err := rows.Close(); err != nil {
				return "", err
			}
		}
		return strings.Join(parts, "\n"), nil
	}
}
