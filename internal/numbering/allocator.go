// Package numbering produces unique, monotonically increasing document
// numbers in the form PREFIX-YYYY-NNN, per document kind and year.
//
// The "last used number" is derived by scanning existing document numbers
// inside the caller's transaction, never from an in-process counter: only
// the persist step's uniqueness constraint plus bounded retry restores
// correctness when concurrent callers read the same maximum.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

type Kind string

const (
	KindQuote   Kind = "quote"
	KindInvoice Kind = "invoice"
)

// KindConfig is the external numbering contract for one document kind:
// PREFIX-YEAR-SEQ with SEQ zero-padded to Width digits.
type KindConfig struct {
	Prefix string
	Width  int
	// WidenOnOverflow lets the sequence exceed the padded width
	// naturally (e.g. FAC-2025-10000 after 9999). When false the
	// allocator fails loudly instead of overflowing.
	WidenOnOverflow bool
}

var (
	// ErrAllocationExhausted is surfaced after the bounded
	// allocate-and-persist retry loop keeps losing uniqueness races.
	ErrAllocationExhausted = errors.New("document number allocation exhausted after retries")

	// ErrWidthOverflow is surfaced when the next sequence value no
	// longer fits the configured pad width and widening is disabled.
	ErrWidthOverflow = errors.New("document number exceeds configured width")
)

// NumberScanner lists existing document numbers sharing a prefix, inside
// the supplied transaction.
type NumberScanner interface {
	NumbersWithPrefix(ctx context.Context, tx *gorm.DB, kind Kind, prefix string) ([]string, error)
}

type Allocator struct {
	scanner    NumberScanner
	kinds      map[Kind]KindConfig
	MaxRetries int
}

func NewAllocator(scanner NumberScanner, kinds map[Kind]KindConfig, maxRetries int) *Allocator {
	if maxRetries < 1 {
		maxRetries = 5
	}
	return &Allocator{scanner: scanner, kinds: kinds, MaxRetries: maxRetries}
}

// Next returns the next number for (kind, year), scanning inside tx.
// The caller must persist the owning document in the same transaction;
// on a uniqueness conflict it re-runs the whole scan-and-persist
// sequence (see WithRetry).
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, kind Kind, year int) (string, error) {
	cfg, ok := a.kinds[kind]
	if !ok {
		return "", fmt.Errorf("no numbering config for kind %q", kind)
	}

	prefix := fmt.Sprintf("%s-%04d-", cfg.Prefix, year)
	numbers, err := a.scanner.NumbersWithPrefix(ctx, tx, kind, prefix)
	if err != nil {
		return "", err
	}

	next := maxSuffix(numbers, prefix) + 1
	return Format(cfg, year, next)
}

// Format renders PREFIX-YYYY-SEQ with the kind's zero padding.
func Format(cfg KindConfig, year, seq int) (string, error) {
	limit := pow10(cfg.Width)
	if seq >= limit && !cfg.WidenOnOverflow {
		return "", fmt.Errorf("%w: %s seq %d does not fit %d digits",
			ErrWidthOverflow, cfg.Prefix, seq, cfg.Width)
	}
	return fmt.Sprintf("%s-%04d-%0*d", cfg.Prefix, year, cfg.Width, seq), nil
}

// maxSuffix parses the numeric suffix of each matching number and keeps
// the maximum. A suffix that fails to parse counts as 0: recovery, not
// fatal, so one malformed legacy row cannot wedge allocation.
func maxSuffix(numbers []string, prefix string) int {
	max := 0
	for _, number := range numbers {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		suffix, err := strconv.Atoi(number[len(prefix):])
		if err != nil || suffix < 0 {
			continue
		}
		if suffix > max {
			max = suffix
		}
	}
	return max
}

// WithRetry runs one allocate-and-persist attempt up to MaxRetries
// times. fn must scan, allocate and persist within a single transaction;
// a duplicate-key failure means another allocator won the race, so the
// next attempt re-scans from a fresh maximum.
func (a *Allocator) WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < a.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrAllocationExhausted, lastErr)
}

// IsUniqueViolation reports whether err is a uniqueness conflict. gorm
// translates driver errors (postgres 23505, sqlite 2067) into
// ErrDuplicatedKey when TranslateError is enabled on the session.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func pow10(n int) int {
	result := 1
	for i := 0; i < n; i++ {
		result *= 10
	}
	return result
}
