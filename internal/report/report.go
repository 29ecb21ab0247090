// Package report turns mining results into human-readable text reports, CSV
// benchmark rows and persisted run history.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
)

// Run is one finished search over a named dataset.
type Run struct {
	ID           int64             `json:"id,omitempty"`
	Dataset      string            `json:"dataset"`
	Strategy     string            `json:"strategy"`
	K            int               `json:"k"`
	Transactions int               `json:"transactions"`
	Items        int               `json:"items"`
	Itemsets     []itemset.Itemset `json:"itemsets"`
	Threshold    float64           `json:"threshold"`
	Density      float64           `json:"density"`
	Role         string            `json:"role,omitempty"`
	ElapsedMS    float64           `json:"elapsed_ms"`
	MemoryMB     float64           `json:"memory_mb"`
	CreatedAt    time.Time         `json:"created_at"`
}

// FromResult builds a Run from a mining result.
func FromResult(dataset string, res *mining.Result) Run {
	return Run{
		Dataset:      dataset,
		Strategy:     string(res.Strategy),
		K:            res.K,
		Transactions: res.Transactions,
		Items:        res.Items,
		Itemsets:     res.Itemsets,
		Threshold:    res.Threshold,
		Density:      res.Density,
		Role:         res.Role,
		ElapsedMS:    float64(res.Elapsed) / float64(time.Millisecond),
		MemoryMB:     float64(res.AllocatedBytes) / (1024 * 1024),
		CreatedAt:    time.Now().UTC(),
	}
}

// FileName returns the conventional report name <strategy>_k<K>_<dataset>.txt.
func FileName(run Run) string {
	return fmt.Sprintf("%s_k%d_%s.txt", run.Strategy, run.K, run.Dataset)
}

// WriteText renders run as a plain-text report.
func WriteText(w io.Writer, run Run) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "====== TOP-K EXPECTED SUPPORT ITEMSETS FROM UNCERTAIN DATABASE ======\n\n")
	for _, is := range run.Itemsets {
		fmt.Fprintln(bw, is.String())
	}
	fmt.Fprintf(bw, "\n====================== RUN SUMMARY ======================\n")
	fmt.Fprintf(bw, " Dataset : %s\n", run.Dataset)
	fmt.Fprintf(bw, " Strategy : %s\n", run.Strategy)
	if run.Role != "" && run.Role != run.Strategy {
		fmt.Fprintf(bw, " Selected role : %s (density %.4f)\n", run.Role, run.Density)
	}
	fmt.Fprintf(bw, " Top K = %d\n", run.K)
	fmt.Fprintf(bw, " Items count from dataset : %d\n", run.Items)
	fmt.Fprintf(bw, " Transactions count from dataset : %d\n", run.Transactions)
	fmt.Fprintf(bw, " Final threshold : %.4f\n", run.Threshold)
	fmt.Fprintf(bw, " Memory allocated : %.3f mb\n", run.MemoryMB)
	fmt.Fprintf(bw, " Total time ~ %d ms\n", int64(run.ElapsedMS))
	fmt.Fprintf(bw, "=========================================================\n")
	return bw.Flush()
}

// WriteTextFile writes the report for run into dir under FileName(run) and
// returns the path.
func WriteTextFile(dir string, run Run) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(run))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report %s: %w", path, err)
	}
	if err := WriteText(f, run); err != nil {
		f.Close()
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing report %s: %w", path, err)
	}
	return path, nil
}
