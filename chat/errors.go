package chat

import (
	"errors"
	"fmt"

	"github.com/poiesic/docent/core"
)

var (
	// ErrChatRepositoryRequired is returned when a chat repository is not provided.
	ErrChatRepositoryRequired = errors.New("chat repository required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrOwnerRequired is returned when a request carries no owner.
	ErrOwnerRequired = fmt.Errorf("%w: owner is required", core.ErrValidation)
)
