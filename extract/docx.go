package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"slices"
	"strings"
)

const documentPart = "word/document.xml"

// extractDOCX returns header paragraphs, then body paragraphs, then table
// rows with non-empty cells joined by tabs, one per line.
func extractDOCX(ctx context.Context, path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var (
		body    *zip.File
		headers []*zip.File
	)
	for _, file := range reader.File {
		switch {
		case file.Name == documentPart:
			body = file
		case strings.HasPrefix(file.Name, "word/header") && strings.HasSuffix(file.Name, ".xml"):
			headers = append(headers, file)
		}
	}
	if body == nil {
		return "", errors.New("not a word document: " + documentPart + " missing")
	}
	slices.SortFunc(headers, func(a, b *zip.File) int { return strings.Compare(a.Name, b.Name) })

	var parts []string
	for _, file := range headers {
		var header headerXML
		if err := decodePart(file, &header); err != nil {
			return "", err
		}
		parts = appendParagraphs(parts, header.Paragraphs)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var doc documentXML
	if err := decodePart(body, &doc); err != nil {
		return "", err
	}
	parts = appendParagraphs(parts, doc.Body.Paragraphs)

	for _, table := range doc.Body.Tables {
		for _, row := range table.Rows {
			var cells []string
			for _, cell := range row.Cells {
				if text := strings.TrimSpace(cell.text()); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, "\t"))
			}
		}
	}

	return strings.Join(parts, "\n"), nil
}

func decodePart(file *zip.File, v any) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return xml.Unmarshal(content, v)
}

func appendParagraphs(parts []string, paragraphs []paragraph) []string {
	for _, p := range paragraphs {
		if strings.TrimSpace(p.Text) != "" {
			parts = append(parts, p.Text)
		}
	}
	return parts
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
		Tables     []table     `xml:"tbl"`
	} `xml:"body"`
}

// headerXML represents the structure of word/headerN.xml.
type headerXML struct {
	Paragraphs []paragraph `xml:"p"`
}

type table struct {
	Rows []struct {
		Cells []tableCell `xml:"tc"`
	} `xml:"tr"`
}

type tableCell struct {
	Paragraphs []paragraph `xml:"p"`
}

func (c tableCell) text() string {
	lines := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		lines[i] = p.Text
	}
	return strings.Join(lines, "\n")
}

// paragraph collects the text runs of a w:p element in document order,
// including runs nested in hyperlinks and fields.
type paragraph struct {
	Text string
}

func (p *paragraph) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var (
		b      strings.Builder
		inText bool
	)
	for depth := 1; depth > 0; {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	p.Text = b.String()
	return nil
}
