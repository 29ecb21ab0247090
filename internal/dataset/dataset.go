// Package dataset reads classical transaction files, derives uncertain
// probability matrices from them and loads those matrices into memory.
//
// An origin file holds one transaction per line as whitespace-separated item
// identifiers. A probability file holds one row per transaction and one
// column per item of the origin universe, in first-appearance order; a zero
// entry means the item is absent.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/support"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
)

// ProbabilitySuffix is appended to a dataset name to form its probability file.
const ProbabilitySuffix = "_probability.txt"

const maxLine = 64 << 20

// Summary describes a loaded database.
type Summary struct {
	Transactions int     `json:"transactions"`
	Items        int     `json:"items"`
	Density      float64 `json:"density"`
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}

// ReadOrigin parses a classical transaction file. It returns the non-empty
// transactions and the item universe in order of first appearance.
func ReadOrigin(r io.Reader) ([][]string, []string, error) {
	var (
		transactions [][]string
		universe     []string
		seen         = make(map[string]struct{})
	)
	sc := newScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		for _, item := range fields {
			if _, ok := seen[item]; !ok {
				seen[item] = struct{}{}
				universe = append(universe, item)
			}
		}
		transactions = append(transactions, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading origin transactions: %w", err)
	}
	return transactions, universe, nil
}

// Generate writes a probability matrix for origin to w and returns the item
// universe that names its columns. Present items receive a probability drawn
// as round((u+0.01)*100)/100 for uniform u, capped at 1; absent items get 0.
func Generate(origin [][]string, w io.Writer, rng *rand.Rand) ([]string, error) {
	var universe []string
	seen := make(map[string]struct{})
	for _, tx := range origin {
		for _, item := range tx {
			if _, ok := seen[item]; !ok {
				seen[item] = struct{}{}
				universe = append(universe, item)
			}
		}
	}

	bw := bufio.NewWriter(w)
	row := make([]string, len(universe))
	for _, tx := range origin {
		present := make(map[string]struct{}, len(tx))
		for _, item := range tx {
			present[item] = struct{}{}
		}
		for i, item := range universe {
			if _, ok := present[item]; !ok {
				row[i] = "0"
				continue
			}
			row[i] = strconv.FormatFloat(drawProbability(rng), 'f', 2, 64)
		}
		if _, err := bw.WriteString(strings.Join(row, " ") + "\n"); err != nil {
			return nil, fmt.Errorf("writing probability row: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flushing probability matrix: %w", err)
	}
	return universe, nil
}

func drawProbability(rng *rand.Rand) float64 {
	p := math.Round((rng.Float64()+0.01)*100) / 100
	return math.Min(p, 1)
}

// ReadMatrix parses a probability matrix whose columns are named by items.
// With nil items the columns are named "1", "2", ... Zero entries are
// omitted from the transaction. Blank lines are skipped.
func ReadMatrix(r io.Reader, items []string) ([]itemset.Transaction, error) {
	var db []itemset.Transaction
	sc := newScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if items != nil && len(fields) > len(items) {
			return nil, apperrors.Invalidf("line %d: %d columns but only %d items", line, len(fields), len(items))
		}
		tx := make(itemset.Transaction)
		for i, field := range fields {
			p, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, apperrors.Invalidf("line %d column %d: %q is not a number", line, i+1, field)
			}
			if math.IsNaN(p) || p < 0 || p > 1 {
				return nil, apperrors.Invalidf("line %d column %d: probability %v outside [0, 1]", line, i+1, p)
			}
			if p == 0 {
				continue
			}
			tx[columnName(items, i)] = p
		}
		db = append(db, tx)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading probability matrix: %w", err)
	}
	return db, nil
}

func columnName(items []string, i int) string {
	if items == nil {
		return strconv.Itoa(i + 1)
	}
	return items[i]
}

// LoadFile reads the probability matrix at path.
func LoadFile(path string, items []string) ([]itemset.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	db, err := ReadMatrix(f, items)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return db, nil
}

// GenerateFile derives the probability file for the origin file at
// originPath, writing it to probPath and creating its directory if needed.
func GenerateFile(originPath, probPath string, rng *rand.Rand) ([]string, error) {
	in, err := os.Open(originPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDatasetNotFound, originPath)
		}
		return nil, fmt.Errorf("opening %s: %w", originPath, err)
	}
	defer in.Close()

	origin, _, err := ReadOrigin(in)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", originPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(probPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(probPath), err)
	}
	out, err := os.Create(probPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", probPath, err)
	}
	items, err := Generate(origin, out, rng)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing %s: %w", probPath, closeErr)
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Name strips the directory and extension from an origin file path.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProbabilityPath returns the probability file for dataset name inside dir.
func ProbabilityPath(dir, name string) string {
	return filepath.Join(dir, name+ProbabilitySuffix)
}

// Discover lists the origin files (*.txt) in dir, sorted by name.
func Discover(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDatasetNotFound, dir)
	}
	return matches, nil
}

// Stats summarises db. An empty database has zero density.
func Stats(db []itemset.Transaction) Summary {
	s := Summary{
		Transactions: len(db),
		Items:        len(itemset.Universe(db)),
	}
	if d, err := support.Density(db); err == nil {
		s.Density = d
	}
	return s
}
