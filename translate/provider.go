package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// APIFormat selects the request/response wire shape of a provider.
type APIFormat string

const (
	FormatOpenAIChat   APIFormat = "openai-chat"
	FormatGeminiNative APIFormat = "gemini-native"
	FormatAnthropic    APIFormat = "anthropic"
	FormatOllama       APIFormat = "ollama"
)

// ProviderConfig describes one upstream translation endpoint.
type ProviderConfig struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name,omitempty"`
	APIFormat  APIFormat `yaml:"api_format,omitempty"`
	BaseURL    string    `yaml:"base_url,omitempty"`
	APIKey     string    `yaml:"api_key,omitempty"`
	Model      string    `yaml:"model,omitempty"`
	Timeout    Duration  `yaml:"timeout,omitempty"`
	MaxRetries int       `yaml:"max_retries,omitempty"`
	Proxy      string    `yaml:"proxy,omitempty"`
}

// DefaultProviders returns the built-in provider table. Entries without
// an API key are skipped at chain-building time (Ollama needs none).
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{ID: "openai", Name: "OpenAI", APIFormat: FormatOpenAIChat, BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		{ID: "anthropic", Name: "Anthropic", APIFormat: FormatAnthropic, BaseURL: "https://api.anthropic.com/v1", Model: "claude-3-5-haiku-latest"},
		{ID: "gemini", Name: "Google Gemini", APIFormat: FormatGeminiNative, BaseURL: "https://generativelanguage.googleapis.com/v1beta", Model: "gemini-2.0-flash"},
		{ID: "ollama", Name: "Ollama", APIFormat: FormatOllama, BaseURL: "http://localhost:11434", Model: "llama3.1"},
	}
}

const defaultTimeout = 120 * time.Second

// HTTPProvider is a single upstream endpoint speaking one APIFormat.
// It performs exactly one call per TranslateBatch; retries and
// fallback belong to the chain around it.
type HTTPProvider struct {
	cfg    ProviderConfig
	client *resty.Client
	usage  usageCounter
}

// NewHTTPProvider builds a provider from its config.
func NewHTTPProvider(cfg ProviderConfig) *HTTPProvider {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy)
	}
	return &HTTPProvider{cfg: cfg, client: client}
}

func (p *HTTPProvider) Name() string {
	if p.cfg.Name != "" {
		return p.cfg.Name
	}
	return p.cfg.ID
}

// Usage implements UsageReporter.
func (p *HTTPProvider) Usage() UsageStats { return p.usage.Usage() }

// TranslateBatch sends one request and parses the model's JSON array
// reply. Errors carry a ProviderError so callers can classify them.
func (p *HTTPProvider) TranslateBatch(ctx context.Context, sourceLang, targetLang string, texts []string, reqCtx *RequestContext) (map[string]string, error) {
	if len(texts) == 0 {
		return map[string]string{}, nil
	}

	system := buildSystemPrompt(targetLang, reqCtx)
	user := buildUserPrompt(sourceLang, texts)

	logrus.WithFields(logrus.Fields{
		"provider": p.Name(),
		"model":    p.cfg.Model,
		"entries":  len(texts),
		"target":   targetLang,
	}).Debug("translate request")

	content, err := p.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	translations, err := parseTranslations(content, len(texts))
	if err != nil {
		// A malformed reply is transient model misbehavior, retryable.
		return nil, &ProviderError{Provider: p.Name(), Kind: KindServiceUnavailable, Err: err}
	}

	result := make(map[string]string, len(texts))
	for i, t := range texts {
		result[t] = unescapeFromPrompt(translations[i])
	}
	return result, nil
}

// complete performs the format-specific HTTP call and returns the raw
// model output text.
func (p *HTTPProvider) complete(ctx context.Context, system, user string) (string, error) {
	switch p.cfg.APIFormat {
	case FormatGeminiNative:
		return p.completeGemini(ctx, system, user)
	case FormatAnthropic:
		return p.completeAnthropic(ctx, system, user)
	case FormatOllama:
		return p.completeOllama(ctx, system, user)
	default:
		return p.completeOpenAI(ctx, system, user)
	}
}

func (p *HTTPProvider) completeOpenAI(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.3,
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+p.cfg.APIKey).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Kind: classify(err), Err: err}
	}
	if resp.IsError() {
		return "", p.statusError(resp)
	}

	raw := resp.String()
	p.usage.add(gjson.Get(raw, "usage.prompt_tokens").Int(), gjson.Get(raw, "usage.completion_tokens").Int())
	content := gjson.Get(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", p.shapeError(raw)
	}
	return content.String(), nil
}

func (p *HTTPProvider) completeGemini(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{{"text": system}},
		},
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": user}}},
		},
		"generationConfig": map[string]any{"temperature": 0.3},
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", p.cfg.APIKey).
		SetBody(body).
		Post(fmt.Sprintf("/models/%s:generateContent", p.cfg.Model))
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Kind: classify(err), Err: err}
	}
	if resp.IsError() {
		return "", p.statusError(resp)
	}

	raw := resp.String()
	p.usage.add(gjson.Get(raw, "usageMetadata.promptTokenCount").Int(), gjson.Get(raw, "usageMetadata.candidatesTokenCount").Int())
	content := gjson.Get(raw, "candidates.0.content.parts.0.text")
	if !content.Exists() {
		return "", p.shapeError(raw)
	}
	return content.String(), nil
}

func (p *HTTPProvider) completeAnthropic(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model":      p.cfg.Model,
		"max_tokens": 8192,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", p.cfg.APIKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(body).
		Post("/messages")
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Kind: classify(err), Err: err}
	}
	if resp.IsError() {
		return "", p.statusError(resp)
	}

	raw := resp.String()
	p.usage.add(gjson.Get(raw, "usage.input_tokens").Int(), gjson.Get(raw, "usage.output_tokens").Int())
	content := gjson.Get(raw, `content.#(type=="text").text`)
	if !content.Exists() {
		return "", p.shapeError(raw)
	}
	return content.String(), nil
}

func (p *HTTPProvider) completeOllama(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model": p.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"stream":  false,
		"options": map[string]any{"temperature": 0.3},
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/chat")
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Kind: classify(err), Err: err}
	}
	if resp.IsError() {
		return "", p.statusError(resp)
	}

	raw := resp.String()
	p.usage.add(gjson.Get(raw, "prompt_eval_count").Int(), gjson.Get(raw, "eval_count").Int())
	content := gjson.Get(raw, "message.content")
	if !content.Exists() {
		return "", p.shapeError(raw)
	}
	return content.String(), nil
}

func (p *HTTPProvider) statusError(resp *resty.Response) error {
	status := resp.StatusCode()
	body := resp.String()
	msg := gjson.Get(body, "error.message").String()
	if msg == "" {
		msg = truncate(body, 200)
	}
	return &ProviderError{
		Provider: p.Name(),
		Kind:     classifyStatus(status, body),
		Status:   status,
		Err:      fmt.Errorf("HTTP %d: %s", status, msg),
	}
}

func (p *HTTPProvider) shapeError(raw string) error {
	return &ProviderError{
		Provider: p.Name(),
		Kind:     KindServiceUnavailable,
		Err:      fmt.Errorf("unexpected response shape: %s", truncate(raw, 200)),
	}
}
