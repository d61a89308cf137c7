package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"deckhand/internal/enrich"
	"deckhand/internal/profiles"
)

// consoleSink prints pipeline progress to the command's output stream.
type consoleSink struct {
	out io.Writer
}

func (s *consoleSink) Update(_ context.Context, text string) {
	fmt.Fprintln(s.out, text)
}

func (s *consoleSink) Send(_ context.Context, text string) error {
	fmt.Fprintln(s.out, text)
	return nil
}

// readWordsFile loads one word or phrase per line, skipping blanks and
// #-comments.
func readWordsFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words file: %w", err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read words file: %w", err)
	}
	return words, nil
}

func printSummary(out io.Writer, summary enrich.Summary) {
	fmt.Fprintf(out, "\nCreated: %d  Duplicates: %d  Errors: %d\n",
		summary.Created, summary.Duplicates, len(summary.Errors))
	for _, msg := range summary.Errors {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	if len(summary.Distribution) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderDistribution(summary.Distribution))
	}
}

func renderDistribution(results []profiles.Result) string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := "ok"
		if !result.Success {
			status = "failed"
		}
		rows = append(rows, []string{
			result.Profile,
			status,
			strconv.Itoa(result.NotesDistributed),
			result.Err,
		})
	}
	return renderTable(
		[]string{"Profile", "Status", "Notes", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}
