// Package validator checks mining requests before they reach a searcher. It
// reports every offending field at once.
package validator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
)

// Limits bounds the size of an accepted request. Zero disables a limit.
type Limits struct {
	MaxK            int
	MaxTransactions int
}

// ValidationError holds per-field validation failure messages. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateMineRequest checks req against limits. Defaults must already be
// applied: K and Strategy are required here.
func ValidateMineRequest(req *service.MineRequest, limits Limits) error {
	errs := make(map[string]string)

	switch n := len(req.Transactions); {
	case n == 0:
		errs["transactions"] = "at least one transaction is required"
	case limits.MaxTransactions > 0 && n > limits.MaxTransactions:
		errs["transactions"] = fmt.Sprintf("at most %d transactions are accepted", limits.MaxTransactions)
	default:
		if msg := checkTransactions(req.Transactions); msg != "" {
			errs["transactions"] = msg
		}
	}

	if req.K < 1 {
		errs["k"] = "k must be a positive integer"
	} else if limits.MaxK > 0 && req.K > limits.MaxK {
		errs["k"] = fmt.Sprintf("k must be at most %d", limits.MaxK)
	}

	if _, err := mining.ParseStrategy(req.Strategy); err != nil {
		names := make([]string, 0, 5)
		for _, s := range mining.Strategies() {
			names = append(names, string(s))
		}
		errs["strategy"] = fmt.Sprintf("strategy must be one of %s", strings.Join(names, ", "))
	}

	if math.IsNaN(req.DensityThreshold) || req.DensityThreshold < 0 {
		errs["density_threshold"] = "density_threshold must be a non-negative number"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// checkTransactions returns a message for the first malformed entry.
func checkTransactions(txs []map[string]float64) string {
	for i, t := range txs {
		for item, p := range t {
			if strings.TrimSpace(item) == "" {
				return fmt.Sprintf("transaction %d: item identifiers must be non-empty", i)
			}
			if math.IsNaN(p) || p <= 0 || p > 1 {
				return fmt.Sprintf("transaction %d: probability of %q must be in (0, 1], got %v", i, item, p)
			}
		}
	}
	return ""
}
