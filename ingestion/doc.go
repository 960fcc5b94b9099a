// Package ingestion turns uploaded documents into searchable chunks.
//
// The Pipeline drives each document through
//
//	uploading -> processing -> completed | failed
//
// by extracting its text, splitting it into chunks, embedding every chunk
// and storing the chunks together with the completed status. Any failure is
// recorded on the document as a short, user-facing message and the document
// keeps no chunks.
//
// Jobs run on a bounded worker pool. Concurrent requests to process the same
// document are collapsed into one run.
package ingestion
