// Package embedding turns text into vectors through an ai.Embedder.
//
// The Client embeds texts one at a time in input order, grouped into small
// batches for pacing, and retries transient provider failures a bounded
// number of times with a fixed delay. Connection and model errors are not
// transient and fail immediately.
package embedding
