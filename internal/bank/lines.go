package bank

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Lines reads flattened statement text and returns its non-empty lines, trimmed,
// with runs of whitespace collapsed
func Lines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statement text: %w", err)
	}
	return lines, nil
}
