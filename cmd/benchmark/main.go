package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"resumematch/config"
	"resumematch/internal/adapter/embedding"
	"resumematch/internal/adapter/sqlstore"
	"resumematch/internal/adapter/store"
	"resumematch/internal/port"
)

func main() {
	indexPath := flag.String("index", ".", "Workspace directory holding .resumematch/")
	query := flag.String("q", "", "Query or job description to test")
	topK := flag.Int("k", 10, "Number of chunk hits")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -index ./workspace -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model connection, vector index)")
		fmt.Println("  2. Semantic similarity (query vs recalled chunks)")
		fmt.Println("  3. Profile spread (how many distinct candidates the hits cover)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(config.IndexDBPath(*indexPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	embedder, index, err := setupEmbedding(ctx, db, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Semantic search not available: %v\n", err)
		os.Exit(1)
	}
	ledger, err := openLedger(db, cfg, *indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		os.Exit(1)
	}
	defer ledger.Close()

	fmt.Println("SEMANTIC RECALL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	count, _ := index.Count()
	fmt.Printf("Chunks indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", oneLine(*query, 120))
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	queryVec, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	embedTime := time.Since(start)
	fmt.Printf("Query embedded: %d dimensions in %s\n\n", len(queryVec[0]), embedTime.Round(time.Millisecond))

	start = time.Now()
	hits, err := index.Query(ctx, queryVec[0], *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	queryTime := time.Since(start)
	if len(hits) == 0 {
		fmt.Println("No hits. Ingest some resumes first.")
		return
	}

	fmt.Printf("Top %d chunk hits:\n\n", len(hits))

	totalSim := 0.0
	profiles := make(map[string]bool)
	orphans := 0
	for i, h := range hits {
		similarity := 1 - h.Distance
		totalSim += similarity
		profiles[h.ProfileID] = true

		rating := "LOW"
		if similarity > 0.7 {
			rating = "HIGH"
		} else if similarity > 0.5 {
			rating = "GOOD"
		} else if similarity > 0.3 {
			rating = "OK"
		}

		summary := "(missing from ledger)"
		if p, err := ledger.Get(ctx, h.ProfileID); err == nil {
			summary = oneLine(p.Summary, 150)
		} else {
			orphans++
		}

		fmt.Printf("%d. [%s %.3f] %s #%d\n", i+1, rating, similarity, h.ProfileID, h.Seq)
		fmt.Printf("   %s\n\n", summary)
	}

	avgSim := totalSim / float64(len(hits))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgSim)
	fmt.Printf("  Top-1 similarity:   %.3f\n", 1-hits[0].Distance)
	fmt.Printf("  Distinct profiles:  %d of %d hits\n", len(profiles), len(hits))
	fmt.Printf("  Orphaned hits:      %d\n", orphans)
	fmt.Printf("  Query latency:      %s\n", queryTime.Round(time.Microsecond))

	if avgSim > 0.5 {
		fmt.Println("  Status: GOOD - recall is working well")
	} else if avgSim > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or a reindex")
	}
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func setupEmbedding(ctx context.Context, db *store.DB, cfg *config.Config) (port.Embedder, *store.VectorIndex, error) {
	check, err := db.CheckMigration(cfg)
	if err != nil {
		return nil, nil, err
	}
	if check.NeedsReembed {
		return nil, nil, fmt.Errorf("%s - run 'resumematch reindex'", check.Reason)
	}

	var embedder port.Embedder
	switch cfg.Embedding.Provider {
	case "hash", "":
		dim := cfg.Embedding.Dimension
		if dim <= 0 {
			dim = 256
		}
		embedder = embedding.NewHashEmbedder(dim)
	case "ollama":
		embedder = embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(envOr(cfg.Embedding.APIKeyEnv, "OPENAI_API_KEY"), cfg.Embedding.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("embedder init failed: %w", err)
		}
		if cfg.Embedding.Dimension > 0 {
			e = e.WithDimension(cfg.Embedding.Dimension)
		}
		embedder = e
	case "gemini":
		e, err := embedding.NewGeminiEmbedder(ctx, os.Getenv(envOr(cfg.Embedding.APIKeyEnv, "GEMINI_API_KEY")), cfg.Embedding.Model, cfg.Embedding.Dimension)
		if err != nil {
			return nil, nil, fmt.Errorf("embedder init failed: %w", err)
		}
		embedder = e
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}

	index, err := store.NewVectorIndex(db, embedder.Dimension(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("vector index failed: %w", err)
	}

	count, _ := index.Count()
	if count == 0 {
		return nil, nil, fmt.Errorf("no embeddings - run 'resumematch ingest' first")
	}

	return embedder, index, nil
}

func openLedger(db *store.DB, cfg *config.Config, dir string) (port.Ledger, error) {
	if cfg.Storage.Ledger == "sqlite" {
		return sqlstore.Open(config.LedgerPath(dir))
	}
	return store.NewLedger(db), nil
}

func envOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
