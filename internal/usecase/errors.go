package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrBlocked matches any BlockedError through errors.Is.
	ErrBlocked             = errors.New("blocked by bot detection")
	ErrSearchInputNotFound = errors.New("search input not found")
	ErrNoSession           = errors.New("no browser session")
)

// BlockedError reports that the target served a bot-detection page for a query.
type BlockedError struct {
	Query  string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked while processing %q: %s", e.Query, e.Reason)
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}
