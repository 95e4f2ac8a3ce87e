package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultOpenAIURL is the chat completions endpoint.
const DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// Request is one chat completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
	// Model names the model answering, for provenance.
	Model() string
}

// APIError is a non-200 response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

func messages(req Request) []map[string]string {
	var msgs []map[string]string
	if req.System != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": req.System})
	}
	return append(msgs, map[string]string{"role": "user", "content": req.Prompt})
}

func postJSON(ctx context.Context, client *http.Client, provider, url, apiKey string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s API error: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	ModelName string
	BaseURL   string
	client    *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		ModelName: model,
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

func (o *OllamaProvider) Model() string { return o.ModelName }

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.ModelName, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	log.Printf("Ollama model %q not found", o.ModelName)
	return false
}

// Generate sends a prompt to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, req Request) (string, error) {
	body := map[string]any{
		"model":    o.ModelName,
		"messages": messages(req),
		"stream":   false,
		"options": map[string]any{
			"num_predict": req.MaxTokens,
			"temperature": req.Temperature,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, "ollama", o.BaseURL+"/api/chat", "", body, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

// OpenAIProvider is an OpenAI API provider. The key is passed in explicitly
// and only ever sent to URL.
type OpenAIProvider struct {
	ModelName string
	APIKey    string
	URL       string
	client    *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(model, apiKey string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		ModelName: model,
		APIKey:    apiKey,
		URL:       DefaultOpenAIURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIProvider) Model() string { return o.ModelName }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a prompt to OpenAI and returns the response.
func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	body := map[string]any{
		"model":       o.ModelName,
		"messages":    messages(req),
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, "OpenAI", o.URL, o.APIKey, body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return result.Choices[0].Message.Content, nil
}

// CreateProvider picks the configured provider. Ollama falls back to OpenAI
// when it is not reachable; nil means nothing is usable.
func CreateProvider(provider, model, ollamaURL, openaiModel, apiKey string, timeout time.Duration) Provider {
	if strings.ToLower(provider) == "ollama" {
		p := NewOllamaProvider(model, ollamaURL, timeout)
		if p.IsConfigured() {
			log.Printf("Using Ollama with model: %s", model)
			return p
		}
		log.Println("Ollama not available, trying OpenAI fallback...")
	}

	p := NewOpenAIProvider(openaiModel, apiKey, timeout)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", openaiModel)
		return p
	}

	log.Println("No LLM provider available. Store an API key with 'facultypulse apikey set'.")
	return nil
}
