package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"lockchun-chatbot/internal/ai"
	"lockchun-chatbot/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Document is a unit of retrievable content: human-readable section text plus
// the section name it came from. Score is populated on search results.
type Document struct {
	Content string
	Section string
	Score   float64
}

// RedisStore owns one connection to the Redis vector index. Documents are
// stored as hashes under doc:<index>:<id> with a FLOAT32 COSINE vector field.
type RedisStore struct {
	client    *redis.Client
	indexName string
	embedder  ai.Embedder
}

func NewRedisStore(client *redis.Client, indexName string, embedder ai.Embedder) *RedisStore {
	return &RedisStore{
		client:    client,
		indexName: indexName,
		embedder:  embedder,
	}
}

// Dial returns a Dialer that connects to Redis and binds the store to the
// configured index name and the shared embedding client.
func Dial(cfg *config.Config, embedder ai.Embedder) Dialer {
	return func(ctx context.Context) (Index, error) {
		client, err := config.NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.RedisIndexName, embedder), nil
	}
}

func (s *RedisStore) keyPrefix() string {
	return "doc:" + s.indexName + ":"
}

// EnsureIndex creates the search index if it does not already exist.
func (s *RedisStore) EnsureIndex(ctx context.Context, dim int) error {
	err := s.client.FTCreate(ctx, s.indexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{s.keyPrefix()},
		},
		&redis.FieldSchema{
			FieldName: "content",
			FieldType: redis.SearchFieldTypeText,
		},
		&redis.FieldSchema{
			FieldName: "section",
			FieldType: redis.SearchFieldTypeTag,
		},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            dim,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Err()
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", s.indexName, err)
	}
	return nil
}

// DropIndex removes the index and all indexed documents.
func (s *RedisStore) DropIndex(ctx context.Context) error {
	return s.client.FTDropIndexWithArgs(ctx, s.indexName, &redis.FTDropIndexOptions{
		DeleteDocs: true,
	}).Err()
}

// AddDocuments embeds each document and writes it into the index.
func (s *RedisStore) AddDocuments(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		vec, err := s.embedder.EmbedQuery(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("failed to embed document for section %q: %w", doc.Section, err)
		}

		key := s.keyPrefix() + uuid.New().String()
		if err := s.client.HSet(ctx, key, map[string]interface{}{
			"content":   doc.Content,
			"section":   doc.Section,
			"embedding": floatsToBytes(vec),
		}).Err(); err != nil {
			return fmt.Errorf("failed to store document for section %q: %w", doc.Section, err)
		}
	}
	return nil
}

// SimilaritySearch embeds the query and returns the k nearest documents.
func (s *RedisStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	res, err := s.client.FTSearchWithArgs(ctx, s.indexName,
		fmt.Sprintf("*=>[KNN %d @embedding $vector AS vector_score]", k),
		&redis.FTSearchOptions{
			Return: []redis.FTSearchReturn{
				{FieldName: "content"},
				{FieldName: "section"},
				{FieldName: "vector_score"},
			},
			SortBy: []redis.FTSearchSortBy{
				{FieldName: "vector_score", Asc: true},
			},
			DialectVersion: 2,
			LimitOffset:    0,
			Limit:          k,
			Params: map[string]interface{}{
				"vector": floatsToBytes(vec),
			},
		},
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]Document, 0, len(res.Docs))
	for _, hit := range res.Docs {
		doc := Document{
			Content: hit.Fields["content"],
			Section: hit.Fields["section"],
		}
		if raw, ok := hit.Fields["vector_score"]; ok {
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				doc.Score = score
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Probe runs a cheap similarity query to confirm the index is usable end to end.
func (s *RedisStore) Probe(ctx context.Context) error {
	_, err := s.SimilaritySearch(ctx, "test", 1)
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func floatsToBytes(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
