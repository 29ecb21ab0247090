package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	in := flag.String("in", "", "origin file or directory (default: datasets.originDir)")
	out := flag.String("out", "", "probability directory (default: datasets.probabilityDir)")
	seed := flag.Int64("seed", 0, "random seed (default: datasets.seed)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	source := cfg.Datasets.OriginDir
	if *in != "" {
		source = *in
	}
	dest := cfg.Datasets.ProbabilityDir
	if *out != "" {
		dest = *out
	}
	base := cfg.Datasets.Seed
	if *seed != 0 {
		base = *seed
	}

	origins := []string{source}
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		if origins, err = dataset.Discover(source); err != nil {
			slog.Error("listing datasets failed", "error", err)
			os.Exit(1)
		}
	}

	failed := false
	for i, origin := range origins {
		name := dataset.Name(origin)
		path := dataset.ProbabilityPath(dest, name)
		items, err := dataset.GenerateFile(origin, path, rand.New(rand.NewSource(base+int64(i))))
		if err != nil {
			slog.Error("generation failed", "dataset", name, "error", err)
			failed = true
			continue
		}
		db, err := dataset.LoadFile(path, items)
		if err != nil {
			slog.Error("reloading generated file failed", "dataset", name, "error", err)
			failed = true
			continue
		}
		s := dataset.Stats(db)
		fmt.Printf("%-24s transactions=%d items=%d density=%.2f -> %s\n", name, s.Transactions, s.Items, s.Density, path)
	}
	if failed {
		os.Exit(1)
	}
}
