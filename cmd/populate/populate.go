// Command populate rebuilds the Redis vector index from the menu file.
// Run out-of-band whenever the menu changes: the index is dropped and
// repopulated wholesale.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"lockchun-chatbot/internal/ai"
	"lockchun-chatbot/internal/config"
	"lockchun-chatbot/internal/logger"
	"lockchun-chatbot/internal/menu"
	"lockchun-chatbot/internal/vectorstore"
)

func main() {
	menuPath := flag.String("menu", "", "path to the menu JSON file (defaults to MENU_FILE)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if *menuPath == "" {
		*menuPath = cfg.MenuFile
	}

	data, err := os.ReadFile(*menuPath)
	if err != nil {
		log.Fatalf("Failed to read menu file %s: %v", *menuPath, err)
	}

	sections, err := menu.ParseMenu(data)
	if err != nil {
		log.Fatal("Failed to parse menu:", err)
	}

	docs := menu.BuildDocuments(sections)
	logger.Info("Built documents from menu sections", "count", len(docs))

	ctx := context.Background()

	gemini, err := ai.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create Gemini client:", err)
	}
	defer gemini.Close()

	client, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	store := vectorstore.NewRedisStore(client, cfg.RedisIndexName, gemini)

	// Drop the existing index so the rebuild replaces it wholesale
	if err := store.DropIndex(ctx); err != nil {
		if strings.Contains(err.Error(), "Unknown Index name") || strings.Contains(err.Error(), "no such index") {
			logger.Info("Index does not exist yet", "index", cfg.RedisIndexName)
		} else {
			log.Fatal("Failed to drop index:", err)
		}
	} else {
		logger.Info("Dropped existing index", "index", cfg.RedisIndexName)
	}

	if len(docs) == 0 {
		log.Fatal("Menu file produced no documents")
	}

	// The index schema needs the vector dimension up front; probe it from
	// the first document
	probe, err := gemini.EmbedQuery(ctx, docs[0].Content)
	if err != nil {
		log.Fatal("Failed to embed dimension probe:", err)
	}

	if err := store.EnsureIndex(ctx, len(probe)); err != nil {
		log.Fatal("Failed to create index:", err)
	}

	if err := store.AddDocuments(ctx, docs); err != nil {
		log.Fatal("Failed to populate index:", err)
	}
	logger.Info("Index populated", "index", cfg.RedisIndexName, "documents", len(docs))

	// Smoke test: the index must answer a similarity query end to end
	results, err := store.SimilaritySearch(ctx, "Family Dinner B", 1)
	if err != nil {
		log.Fatal("Smoke test query failed:", err)
	}
	if len(results) == 0 {
		logger.Warn("Smoke test query returned no results")
	} else {
		snippet := results[0].Content
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		logger.Info("Smoke test successful", "section", results[0].Section, "snippet", snippet)
	}
}
