// Package embed provides text-to-vector embedding via OpenAI-compatible
// APIs. It powers the parser's word_embedding fallback tier: Hebrew terms
// the dictionary misses are matched to the nearest known surface form by
// cosine similarity.
//
// Supported providers:
// - ollama: http://localhost:11434/v1/embeddings
// - openai: https://api.openai.com/v1/embeddings
// - custom: user-specified endpoint
//
// All providers use the OpenAI-compatible /v1/embeddings format.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds embedding provider configuration.
type Config struct {
	Provider    string // "ollama", "openai", "custom"
	Model       string
	Endpoint    string
	APIKey      string
	MaxRetries  int // default: 3
	TimeoutSecs int // per-request timeout (default: 60)

	dimensions int // auto-detected on first call
}

// Request is an OpenAI-compatible embeddings request.
type Request struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// Response is an OpenAI-compatible embeddings response.
type Response struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// HTTPError is an HTTP error with retry context.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client calls an embeddings endpoint with retries. It satisfies the
// parser's Embedder capability.
type Client struct {
	config Config
	http   *http.Client
}

// ParseFlag parses "provider/model" (model names may themselves contain
// slashes) into a Config with provider defaults applied.
func ParseFlag(flag string) (*Config, error) {
	if flag == "" {
		return nil, fmt.Errorf("empty embedding flag")
	}

	slashIdx := strings.Index(flag, "/")
	if slashIdx == -1 {
		return nil, fmt.Errorf("invalid embed format: expected 'provider/model', got %q", flag)
	}
	provider := flag[:slashIdx]
	model := flag[slashIdx+1:]
	if provider == "" {
		return nil, fmt.Errorf("empty provider in embed flag: %q", flag)
	}
	if model == "" {
		return nil, fmt.Errorf("empty model in embed flag: %q", flag)
	}

	config := &Config{
		Provider:    provider,
		Model:       model,
		MaxRetries:  3,
		TimeoutSecs: 60,
	}

	switch provider {
	case "ollama":
		config.Endpoint = "http://localhost:11434/v1/embeddings"
		// No API key needed for Ollama
	case "openai":
		config.Endpoint = "https://api.openai.com/v1/embeddings"
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	case "custom":
		config.Endpoint = os.Getenv("PARTLEX_EMBED_ENDPOINT")
		config.APIKey = os.Getenv("PARTLEX_EMBED_API_KEY")
	default:
		return nil, fmt.Errorf("unknown provider %q. Supported: ollama, openai, custom", provider)
	}

	if endpoint := os.Getenv("PARTLEX_EMBED_ENDPOINT"); endpoint != "" {
		config.Endpoint = endpoint
	}
	if apiKey := os.Getenv("PARTLEX_EMBED_API_KEY"); apiKey != "" {
		config.APIKey = apiKey
	}

	return config, nil
}

// Validate checks whether the configuration is complete.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Provider != "ollama" && c.Provider != "test" && c.APIKey == "" {
		return fmt.Errorf("API key is required for provider %q (set via environment variable)", c.Provider)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.TimeoutSecs <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// NewClient creates an embedding client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Client{
		config: *config,
		http: &http.Client{
			Timeout: time.Duration(config.TimeoutSecs) * time.Second,
		},
	}, nil
}

// Embed generates embedding vectors for texts in one API call, retrying
// with exponential backoff on failure and honoring Retry-After on rate
// limits. Empty texts come back as nil vectors.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	nonEmpty := make([]string, 0, len(texts))
	indexMap := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			nonEmpty = append(nonEmpty, text)
			indexMap = append(indexMap, i)
		}
	}
	if len(nonEmpty) == 0 {
		return make([][]float32, len(texts)), nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		embeddings, err := c.attempt(ctx, nonEmpty)
		if err == nil {
			result := make([][]float32, len(texts))
			for i, embedding := range embeddings {
				if i < len(indexMap) {
					result[indexMap[i]] = embedding
				}
			}
			for _, emb := range embeddings {
				if len(emb) > 0 {
					c.config.dimensions = len(emb)
					break
				}
			}
			return result, nil
		}

		lastErr = err
		if attempt == c.config.MaxRetries {
			break
		}

		// Exponential backoff: 1s, 2s, 4s
		backoff := time.Duration(1<<attempt) * time.Second
		if httpErr, ok := err.(*HTTPError); ok && httpErr.StatusCode == 429 {
			if httpErr.RetryAfter > 0 {
				backoff = httpErr.RetryAfter
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// Dimensions returns the embedding dimensionality, 0 before the first
// successful call.
func (c *Client) Dimensions() int {
	return c.config.dimensions
}

func (c *Client) attempt(ctx context.Context, texts []string) ([][]float32, error) {
	requestBody, err := json.Marshal(Request{Model: c.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != 200 {
		var retryAfter time.Duration
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			RetryAfter: retryAfter,
		}
	}

	var embedResp Response
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedResp.Data))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("invalid embedding index: %d", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}
