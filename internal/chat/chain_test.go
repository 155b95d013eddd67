package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lockchun-chatbot/internal/vectorstore"
)

type fakeRetriever struct {
	docs []vectorstore.Document
	err  error
	last string
}

func (f *fakeRetriever) RelevantDocuments(ctx context.Context, query string) ([]vectorstore.Document, error) {
	f.last = query
	return f.docs, f.err
}

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestChainInvoke(t *testing.T) {
	retriever := &fakeRetriever{docs: []vectorstore.Document{
		{Content: "Chicken\n• Kung Pao Chicken — $14.95 🔥 spicy", Section: "Chicken"},
		{Content: "Soup\n• Wonton Soup — Small $9.50 | Large $12.95", Section: "Soup"},
	}}
	llm := &fakeLLM{reply: "Kung Pao Chicken is $14.95."}

	chain := NewChain(retriever, llm)
	reply, err := chain.Invoke(context.Background(), "how much is kung pao chicken?")
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if reply != "Kung Pao Chicken is $14.95." {
		t.Errorf("unexpected reply: %q", reply)
	}

	if retriever.last != "how much is kung pao chicken?" {
		t.Errorf("retriever got query %q", retriever.last)
	}
	if !strings.Contains(llm.prompt, "Kung Pao Chicken — $14.95") {
		t.Errorf("prompt missing retrieved context:\n%s", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "how much is kung pao chicken?") {
		t.Errorf("prompt missing the question")
	}
	// Both documents joined into one context block
	if !strings.Contains(llm.prompt, "Wonton Soup") {
		t.Errorf("prompt missing second document")
	}
}

func TestChainInvokeRetrievalError(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("index gone")}
	chain := NewChain(retriever, &fakeLLM{})

	if _, err := chain.Invoke(context.Background(), "hours?"); err == nil {
		t.Fatalf("expected retrieval error to propagate")
	}
}

func TestFormatDocuments(t *testing.T) {
	docs := []vectorstore.Document{
		{Content: "first"},
		{Content: "second"},
	}
	got := FormatDocuments(docs)
	if got != "first\n\nsecond" {
		t.Errorf("FormatDocuments = %q", got)
	}

	if FormatDocuments(nil) != "" {
		t.Errorf("empty input should produce empty block")
	}
}

func TestRenderPromptKeepsRules(t *testing.T) {
	out := RenderPrompt("CONTEXT BLOCK", "QUESTION?")

	if !strings.Contains(out, "CONTEXT BLOCK") {
		t.Errorf("context not substituted")
	}
	if !strings.Contains(out, "QUESTION?") {
		t.Errorf("question not substituted")
	}
	if strings.Contains(out, "{context}") || strings.Contains(out, "{question}") {
		t.Errorf("placeholders left in rendered prompt")
	}
	// The literal URL escape in the directions rule must survive rendering
	if !strings.Contains(out, "Lock+Chun+Chinese+Cuisine%2C+Santa+Clara+CA") {
		t.Errorf("directions link damaged by rendering")
	}
}

func TestBuildChainBeforeInitFails(t *testing.T) {
	svc := vectorstore.NewService(func(ctx context.Context) (vectorstore.Index, error) {
		return nil, errors.New("unused")
	})

	if _, err := BuildChain(svc, &fakeLLM{}, 14); err == nil {
		t.Fatalf("BuildChain must fail before initialization")
	}
}
