package langchain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/tmc/langchaingo/llms"
)

// errCodeConnection marks failures to reach the service at all.
const errCodeConnection llms.ErrorCode = "connection"

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"failed to reach",
	"network error",
	"unexpected eof",
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func newErrorMapper(provider string) *llms.ErrorMapper {
	return llms.NewErrorMapper(provider).AddMatcher(llms.ErrorMatcher{
		Match: isConnectionError,
		Code:  errCodeConnection,
	})
}

// ClassifyError translates a backend error into the ai error vocabulary.
//
// Unreachable services and timeouts wrap ai.ErrProviderConnection, missing
// models wrap ai.ErrProviderModel and 5xx answers wrap ai.ErrProviderServer.
// Cancellation is returned unchanged. Anything else comes back as a
// *llms.Error carrying the original cause.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || ai.IsUnavailable(err) {
		return err
	}

	wrapped := newErrorMapper(provider).WrapError(err)

	var llmErr *llms.Error
	if !errors.As(wrapped, &llmErr) {
		return wrapped
	}
	switch llmErr.Code {
	case errCodeConnection, llms.ErrCodeTimeout:
		return fmt.Errorf("%w: %w", ai.ErrProviderConnection, wrapped)
	case llms.ErrCodeProviderUnavailable:
		return fmt.Errorf("%w: %w", ai.ErrProviderServer, wrapped)
	case llms.ErrCodeResourceNotFound:
		return fmt.Errorf("%w: %w", ai.ErrProviderModel, wrapped)
	default:
		return wrapped
	}
}
