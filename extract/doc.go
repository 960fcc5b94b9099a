// Package extract pulls plain text out of uploaded documents.
//
// A Registry dispatches on core.FileType to one extractor per supported
// format: PDF pages joined by blank lines, DOCX headers, paragraphs and
// tables, and XLSX sheets with tab-separated rows.
package extract
