package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOpenAIURL   = "https://api.openai.com"
	OpenAIDimension    = 1536

	maxInputRunes = 8000
)

// OpenAI calls an OpenAI-compatible /v1/embeddings endpoint.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	dim        int
	httpClient *http.Client
	retry      RetryConfig
}

// NewOpenAI creates an OpenAI-compatible provider. The API key falls back to
// OPENAI_API_KEY.
func NewOpenAI(baseURL, apiKey, model string, dim int) (*OpenAI, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrProviderFailed, EnvOpenAIAPIKey)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dim <= 0 {
		dim = OpenAIDimension
	}
	return &OpenAI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dim:        dim,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetryConfig(),
	}, nil
}

func (o *OpenAI) Name() string   { return ProviderOpenAI }
func (o *OpenAI) Dimension() int { return o.dim }

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed requests a single embedding, retrying transient failures with backoff.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if r := []rune(text); len(r) > maxInputRunes {
		text = string(r[:maxInputRunes])
	}
	return retryWithBackoff(ctx, o.retry, func() ([]float32, error) {
		return o.call(ctx, text)
	})
}

func (o *OpenAI) call(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text, Model: o.model, Dimensions: o.requestDim()})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderFailed, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrProviderFailed)
	}
	return out.Data[0].Embedding, nil
}

// requestDim asks for a reduced dimension only when it differs from the model default.
func (o *OpenAI) requestDim() int {
	if o.dim == OpenAIDimension {
		return 0
	}
	return o.dim
}
