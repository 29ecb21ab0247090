// Package service defines the request and response bodies of the mining HTTP
// API.
package service

import (
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/stats"
)

// MineRequest is the JSON body accepted by POST /api/v1/mine. Each
// transaction maps item identifiers to their occurrence probability.
type MineRequest struct {
	Transactions     []map[string]float64 `json:"transactions"`
	K                int                  `json:"k"`
	Strategy         string               `json:"strategy"`
	DensityThreshold float64              `json:"density_threshold"`
}

// Database converts the request transactions into the mining representation.
func (r *MineRequest) Database() []itemset.Transaction {
	db := make([]itemset.Transaction, len(r.Transactions))
	for i, t := range r.Transactions {
		db[i] = itemset.Transaction(t)
	}
	return db
}

// MineResponse is returned for a completed search.
type MineResponse struct {
	Strategy     string            `json:"strategy"`
	K            int               `json:"k"`
	Itemsets     []itemset.Itemset `json:"itemsets"`
	Threshold    float64           `json:"threshold"`
	Density      float64           `json:"density"`
	Role         string            `json:"role,omitempty"`
	Transactions int               `json:"transactions"`
	Items        int               `json:"items"`
	Stats        stats.Stats       `json:"stats"`
	ElapsedMS    float64           `json:"elapsed_ms"`
	MemoryMB     float64           `json:"memory_mb"`
	CacheHit     bool              `json:"cache_hit"`
	RequestID    string            `json:"request_id,omitempty"`
}

// NewMineResponse flattens res for the wire.
func NewMineResponse(res *mining.Result, cacheHit bool) *MineResponse {
	return &MineResponse{
		Strategy:     string(res.Strategy),
		K:            res.K,
		Itemsets:     res.Itemsets,
		Threshold:    res.Threshold,
		Density:      res.Density,
		Role:         res.Role,
		Transactions: res.Transactions,
		Items:        res.Items,
		Stats:        res.Stats,
		ElapsedMS:    float64(res.Elapsed.Microseconds()) / 1000,
		MemoryMB:     float64(res.AllocatedBytes) / (1 << 20),
		CacheHit:     cacheHit,
	}
}

// StrategyInfo describes one entry of GET /api/v1/strategies.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default,omitempty"`
}
