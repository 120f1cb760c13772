package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zulandar/sightline/internal/models"
)

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 60 * time.Second

// DefaultRetryDelay is the pause between attempts of a retried dispatch.
const DefaultRetryDelay = 200 * time.Millisecond

// DispatchResult is the normalized outcome of a provider call. Every outcome,
// including transport failures, is expressed here rather than as an error.
type DispatchResult struct {
	Status       string
	StatusCode   int
	InputTokens  int
	OutputTokens int
	Content      *string // set on success only
	ErrorCode    string
	ErrorMessage string
	Attempts     int
	StartedAt    time.Time
	Duration     time.Duration
}

// Dispatcher issues a chat-completions call to a provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, provider *models.Provider, payload ChatRequest) DispatchResult
}

// HTTPDispatcher calls OpenAI-compatible providers over HTTP.
type HTTPDispatcher struct {
	client     *http.Client
	timeout    time.Duration
	retryDelay time.Duration
}

// NewHTTPDispatcher returns a dispatcher whose calls are bounded by timeout.
// A zero timeout uses DefaultTimeout.
func NewHTTPDispatcher(timeout time.Duration) *HTTPDispatcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return NewHTTPDispatcherWithClient(&http.Client{Transport: transport}, timeout)
}

// NewHTTPDispatcherWithClient is like NewHTTPDispatcher but uses client.
func NewHTTPDispatcherWithClient(client *http.Client, timeout time.Duration) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPDispatcher{client: client, timeout: timeout, retryDelay: DefaultRetryDelay}
}

// SetRetryDelay changes the fixed pause between attempts. Zero disables it.
func (d *HTTPDispatcher) SetRetryDelay(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	d.retryDelay = delay
}

// Dispatch POSTs payload to {base_url}/chat/completions. The provider's
// MaxAttempts sets how many calls may be made; only network errors and 5xx
// responses are re-issued, and the last attempt's outcome is returned.
// Attempts are separated by a fixed delay. Duration spans every attempt and
// the delays between them, ending once the final body is fully read.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, provider *models.Provider, payload ChatRequest) DispatchResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return DispatchResult{
			Status:       models.StatusError,
			ErrorCode:    ErrorCodeNetwork,
			ErrorMessage: fmt.Sprintf("encode payload: %v", err),
			StartedAt:    time.Now(),
		}
	}

	maxAttempts := provider.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	start := time.Now()
	var res DispatchResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && !d.wait(ctx) {
			break
		}
		res = d.attempt(ctx, provider, body)
		res.Attempts = attempt
		if !retryable(res) {
			break
		}
	}
	res.StartedAt = start
	res.Duration = time.Since(start)
	return res
}

// wait sleeps for the retry delay. It reports false if ctx ends first, in
// which case the previous attempt's outcome stands.
func (d *HTTPDispatcher) wait(ctx context.Context) bool {
	if d.retryDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (d *HTTPDispatcher) attempt(ctx context.Context, provider *models.Provider, body []byte) DispatchResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	url := strings.TrimRight(provider.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return networkFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return networkFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DispatchResult{
			Status:       models.StatusError,
			StatusCode:   resp.StatusCode,
			ErrorCode:    ProviderErrorCode(resp.StatusCode),
			ErrorMessage: string(data),
		}
	}

	var cr completionResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		res := networkFailure(fmt.Errorf("decode response: %w", err))
		res.StatusCode = resp.StatusCode
		return res
	}

	content := cr.content()
	res := DispatchResult{
		Status:     models.StatusSuccess,
		StatusCode: resp.StatusCode,
		Content:    &content,
	}
	if cr.Usage != nil {
		res.InputTokens = cr.Usage.PromptTokens
		res.OutputTokens = cr.Usage.CompletionTokens
	}
	return res
}

func networkFailure(err error) DispatchResult {
	return DispatchResult{
		Status:       models.StatusError,
		ErrorCode:    ErrorCodeNetwork,
		ErrorMessage: err.Error(),
	}
}

func retryable(res DispatchResult) bool {
	if res.Status == models.StatusSuccess {
		return false
	}
	return res.ErrorCode == ErrorCodeNetwork || res.StatusCode >= 500
}

type completionResponse struct {
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// content returns choices[0].message.content, or "" when absent or null.
// Non-string content (e.g. a parts array) is returned as its raw JSON.
func (cr completionResponse) content() string {
	if len(cr.Choices) == 0 {
		return ""
	}
	raw := cr.Choices[0].Message.Content
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
