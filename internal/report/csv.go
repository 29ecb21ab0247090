package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// CSVHeader names the benchmark columns.
var CSVHeader = []string{
	"dataset", "strategy", "k", "transactions", "items",
	"time_ms", "memory_mb", "itemsets", "threshold",
}

// CSVWriter appends one benchmark row per run. The header is written before
// the first row. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	header bool
}

// NewCSVWriter wraps w. Set headerWritten when appending to a file that
// already has rows.
func NewCSVWriter(w io.Writer, headerWritten bool) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), header: headerWritten}
}

// Write appends run and flushes it.
func (c *CSVWriter) Write(run Run) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.header {
		if err := c.w.Write(CSVHeader); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
		c.header = true
	}
	row := []string{
		run.Dataset,
		run.Strategy,
		strconv.Itoa(run.K),
		strconv.Itoa(run.Transactions),
		strconv.Itoa(run.Items),
		strconv.FormatFloat(run.ElapsedMS, 'f', 3, 64),
		strconv.FormatFloat(run.MemoryMB, 'f', 3, 64),
		strconv.Itoa(len(run.Itemsets)),
		strconv.FormatFloat(run.Threshold, 'f', 6, 64),
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("writing csv row: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}
