package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docent/ai"
)

// Defaults for the client's pacing and retry policy.
const (
	DefaultBatchSize   = 10
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Client embeds texts sequentially with bounded retries.
type Client struct {
	embedder    ai.Embedder
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBatchSize sets how many texts are embedded between progress logs.
// Default is 10.
func WithBatchSize(size int) Option {
	return func(c *Client) error {
		if size <= 0 {
			return ErrInvalidBatchSize
		}
		c.batchSize = size
		return nil
	}
}

// WithMaxAttempts sets the number of attempts per text. Default is 3.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = attempts
		return nil
	}
}

// WithRetryDelay sets the fixed wait between attempts. Default is 1s.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) error {
		if delay < 0 {
			delay = 0
		}
		c.retryDelay = delay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a Client on top of embedder.
func NewClient(embedder ai.Embedder, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	c := &Client{
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "embedding")
	return c, nil
}

// Embed returns one vector per text, in input order.
// The first text that cannot be embedded fails the whole call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		for i := start; i < end; i++ {
			vector, err := c.embedOne(ctx, texts[i])
			if err != nil {
				return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
			}
			vectors = append(vectors, vector)
		}
		c.logger.Debug("embedded batch", "done", end, "total", len(texts))
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embedOne(ctx, text)
}

func (c *Client) embedOne(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	attempt := 0
	err := Retry(ctx, func() error {
		attempt++
		v, err := c.embedder.EmbedText(ctx, text)
		if err != nil {
			c.logger.Warn("embedding attempt failed", "attempt", attempt, "err", err)
			return err
		}
		if len(v) == 0 {
			return ai.ErrEmptyEmbedding
		}
		vector = v
		return nil
	}, c.maxAttempts, c.retryDelay, IsTransient)
	if err != nil {
		return nil, err
	}
	return vector, nil
}
