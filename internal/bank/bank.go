package bank

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lox/statement-importer/internal/types"
)

// Options carries per-file context into a parser
type Options struct {
	// Source labels every transaction produced from the file
	Source string
	// Today is the fallback for dates that cannot be parsed
	Today time.Time
}

// Result is the output of parsing one file
type Result struct {
	Transactions []types.CanonicalTransaction
	// Skipped counts rows that looked like data but could not be turned into a transaction
	Skipped int
}

// Bank represents a statement format that can be parsed into canonical transactions
type Bank interface {
	// Name returns the selector name of the format
	Name() string

	// ParseTransactions parses a whole file. Malformed rows are skipped and
	// counted; only an unreadable input returns an error.
	ParseTransactions(ctx context.Context, r io.Reader, opts Options) (*Result, error)
}

// Detector is implemented by banks that can recognise their own statement text
type Detector interface {
	Detect(content string) bool
}

// SelectorPDF is the generic selector for text extracted from PDF statements
const SelectorPDF = "pdf"

// Registry maintains a list of available bank implementations
type Registry struct {
	banks    map[string]Bank
	sniffers []Bank
	fallback Bank
}

// NewRegistry creates a new bank registry
func NewRegistry() *Registry {
	return &Registry{
		banks: make(map[string]Bank),
	}
}

// Register adds a bank implementation to the registry
func (r *Registry) Register(b Bank) {
	r.banks[strings.ToLower(b.Name())] = b
	if _, ok := b.(Detector); ok {
		r.sniffers = append(r.sniffers, b)
	}
}

// SetPDFFallback registers the parser used for PDF text no detector recognises
func (r *Registry) SetPDFFallback(b Bank) {
	r.Register(b)
	r.fallback = b
}

// Get returns a bank implementation by name
func (r *Registry) Get(name string) (Bank, bool) {
	b, ok := r.banks[strings.ToLower(strings.TrimSpace(name))]
	return b, ok
}

// Resolve picks the parser for a selector. The "pdf" selector sniffs the
// content for a known bank and otherwise uses the fallback parser.
func (r *Registry) Resolve(selector string, content []byte) (Bank, error) {
	if strings.EqualFold(strings.TrimSpace(selector), SelectorPDF) {
		text := string(content)
		for _, b := range r.sniffers {
			if b.(Detector).Detect(text) {
				return b, nil
			}
		}
		if r.fallback == nil {
			return nil, fmt.Errorf("no parser recognises this pdf text")
		}
		return r.fallback, nil
	}
	b, ok := r.Get(selector)
	if !ok {
		return nil, fmt.Errorf("unknown bank %q (available: %s)", selector, strings.Join(r.List(), ", "))
	}
	return b, nil
}

// List returns a sorted list of all registered bank names
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.banks))
	for name := range r.banks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
