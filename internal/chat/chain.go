package chat

import (
	"context"
	"fmt"
	"strings"

	"lockchun-chatbot/internal/logger"
	"lockchun-chatbot/internal/vectorstore"
)

// Retriever returns the stored documents most similar to a query.
type Retriever interface {
	RelevantDocuments(ctx context.Context, query string) ([]vectorstore.Document, error)
}

// LLM turns a rendered prompt into a plain-text reply.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chain is the composed retrieve -> prompt -> model -> text pipeline.
// Built once per process and reused across requests.
type Chain struct {
	retriever Retriever
	llm       LLM
}

func NewChain(retriever Retriever, llm LLM) *Chain {
	return &Chain{retriever: retriever, llm: llm}
}

// BuildChain assembles the pipeline from the initialized vector store
// service. It must only be called after initialization has succeeded: the
// store accessor fails loudly in any other state and the error propagates.
func BuildChain(vectors *vectorstore.Service, llm LLM, k int) (*Chain, error) {
	index, err := vectors.Index()
	if err != nil {
		return nil, err
	}

	logger.Info("RAG chain configured", "retriever_k", k)
	return NewChain(indexRetriever{index: index, k: k}, llm), nil
}

// Invoke answers a question: retrieve top-K documents, serialize them into a
// context block, fill the prompt template, send it to the model.
func (c *Chain) Invoke(ctx context.Context, question string) (string, error) {
	docs, err := c.retriever.RelevantDocuments(ctx, question)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	prompt := RenderPrompt(FormatDocuments(docs), question)
	return c.llm.Generate(ctx, prompt)
}

// FormatDocuments joins the section texts into a single context block.
func FormatDocuments(docs []vectorstore.Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, "\n\n")
}

type indexRetriever struct {
	index vectorstore.Index
	k     int
}

func (r indexRetriever) RelevantDocuments(ctx context.Context, query string) ([]vectorstore.Document, error) {
	return r.index.SimilaritySearch(ctx, query, r.k)
}
