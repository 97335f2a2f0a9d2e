package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrTokenizer means the token counter could not be constructed or used;
	// fatal for chunking because token budgets cannot be evaluated.
	ErrTokenizer = errors.New("tokenizer unavailable")

	// ErrLegUnavailable marks a single retrieval leg failure. The engine
	// recovers by degrading to the surviving leg.
	ErrLegUnavailable = errors.New("retrieval leg unavailable")

	// ErrSearchUnavailable means both retrieval legs failed; the query is
	// retryable, unlike a malformed query.
	ErrSearchUnavailable = errors.New("search unavailable")

	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
