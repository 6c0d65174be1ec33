// Package progress reports batch progress on stderr.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Progress tracks completion of a fixed number of steps
type Progress interface {
	// Add marks n more steps as done
	Add(n int) error
	// Close clears the progress line
	Close()
}

// Noop is a progress tracker that does nothing
type Noop struct{}

func (Noop) Add(int) error { return nil }
func (Noop) Close()        {}

// Bar renders a progressbar on stderr
type Bar struct {
	bar *progressbar.ProgressBar
}

func (p *Bar) Add(n int) error {
	return p.bar.Add(n)
}

func (p *Bar) Close() {
	_ = p.bar.Finish()
	fmt.Fprint(os.Stderr, "\r\033[K")
}

// NewBar creates a progress bar for total steps with the given label
func NewBar(total int, description string) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			})),
	}
}

// New returns a bar when enabled and a no-op tracker otherwise
func New(enabled bool, total int, description string) Progress {
	if !enabled || total <= 0 {
		return Noop{}
	}
	return NewBar(total, description)
}
