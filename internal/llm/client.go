// Package llm adapts a local Ollama instance as the engine's two external
// collaborators: the text→vector embedder and the reasoning oracle's chat
// backend. Nothing outside this package talks to Ollama directly.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	// DefaultEmbedModel is the recommended embedding model.
	DefaultEmbedModel = "nomic-embed-text"
	// DefaultChatModel is the recommended generation model.
	DefaultChatModel = "llama3.1"
	// DefaultHost is the default Ollama endpoint.
	DefaultHost = "http://localhost:11434"
)

// Client wraps the Ollama API client for embeddings and JSON chat completion.
type Client struct {
	client     *api.Client
	embedModel string
	chatModel  string
}

// NewClient builds a client against host. Empty arguments fall back to the
// package defaults.
func NewClient(host, embedModel, chatModel string) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}

	return &Client{
		client:     api.NewClient(base, http.DefaultClient),
		embedModel: embedModel,
		chatModel:  chatModel,
	}, nil
}

// IsAvailable reports whether the Ollama endpoint answers at all.
func IsAvailable(host string) bool {
	if host == "" {
		host = DefaultHost
	}
	hc := &http.Client{Timeout: 2 * time.Second}
	resp, err := hc.Get(host)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ChatModel returns the generation model name, for result metadata.
func (c *Client) ChatModel() string { return c.chatModel }

// Embed generates one vector per input text in a single batched call.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.embedModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embed batch of %d: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Chat sends a system+user prompt pair and returns the raw completion bytes.
// The request pins JSON output format and a low temperature so repeated runs
// over the same evidence stay reproducible.
func (c *Client) Chat(ctx context.Context, system, user string) ([]byte, error) {
	stream := false
	var sb strings.Builder

	req := &api.ChatRequest{
		Model: c.chatModel,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0.2,
		},
	}

	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return []byte(sb.String()), nil
}
