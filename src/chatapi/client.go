package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryCount = 3
	defaultRetryDelay = time.Second
)

// Config configures the chat service client.
type Config struct {
	BaseURL    string
	APIKey     string
	Logger     *slog.Logger
	Timeout    time.Duration // non-streaming calls only
	RetryCount int
	RetryDelay time.Duration
}

// Client talks to the Arcfusion chat service. GET calls retry on server
// errors; the Ask stream never retries since a broken stream cannot be
// resumed mid-turn.
type Client struct {
	config       Config
	httpClient   *http.Client
	streamClient *http.Client
	logger       *slog.Logger
}

// NewClient creates a chat service client. A missing base URL is a fatal
// configuration error.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RetryCount == 0 {
		config.RetryCount = defaultRetryCount
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = defaultRetryDelay
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		// The streaming client has no overall timeout: a turn may stream for
		// longer than any fixed deadline. Idle detection is the session's job.
		streamClient: &http.Client{},
		logger:       logger.With("component", "chatapi"),
	}, nil
}

// Ask sends a query and returns the raw streamed response body. The caller
// owns the returned reader and must close it; cancelling ctx aborts the
// in-flight read.
func (c *Client) Ask(ctx context.Context, req AskRequest) (io.ReadCloser, error) {
	logger := c.logger.With("method", "Ask", "thread_id", req.ThreadID)
	logger.Debug("sending ask request")

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ask request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v1/chat/ask", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		logger.Error("ask request failed", "error", err)
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		logger.Error("ask request rejected", "status_code", resp.StatusCode)
		return nil, c.handleError(resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrMissingBody
	}
	return resp.Body, nil
}

// GetConversation fetches a full conversation by thread id.
func (c *Client) GetConversation(ctx context.Context, threadID string) (*Conversation, error) {
	logger := c.logger.With("method", "GetConversation", "thread_id", threadID)

	httpReq, err := c.newRequest(ctx, http.MethodGet, "/v1/chat/conversations/"+url.PathEscape(threadID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequestWithRetry(httpReq)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("received error response", "status_code", resp.StatusCode)
		return nil, c.handleError(resp)
	}

	var conv Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations fetches one page of conversation summaries.
func (c *Client) ListConversations(ctx context.Context, page, pageSize int) (*ConversationPage, error) {
	logger := c.logger.With("method", "ListConversations", "page", page)

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	httpReq, err := c.newRequest(ctx, http.MethodGet, "/v1/chat/conversations?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequestWithRetry(httpReq)
	if err != nil {
		logger.Error("request failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("received error response", "status_code", resp.StatusCode)
		return nil, c.handleError(resp)
	}

	var result ConversationPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode conversation page: %w", err)
	}
	return &result, nil
}

// SubmitFeedback records feedback for a reconciled message.
func (c *Client) SubmitFeedback(ctx context.Context, req FeedbackRequest) error {
	if req.MessageID == "" {
		return fmt.Errorf("chatapi: feedback requires a backend message id")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v1/chat/feedback", body)
	if err != nil {
		return err
	}

	resp, err := c.doRequestWithRetry(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleError(resp)
	}
	return nil
}

// ExportMessage fetches the raw export payload for a reconciled message.
func (c *Client) ExportMessage(ctx context.Context, messageID string) ([]byte, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/v1/chat/messages/"+url.PathEscape(messageID)+"/export", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequestWithRetry(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying on transport
// failures and 5xx responses. Client errors return immediately.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error

	logger := c.logger.With("method", "doRequestWithRetry", "url", req.URL.String())

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	for i := 0; i < c.config.RetryCount; i++ {
		reqCopy := req.Clone(req.Context())
		if bodyBytes != nil {
			reqCopy.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.httpClient.Do(reqCopy)
		if err != nil {
			lastErr = err
			logger.Debug("request attempt failed", "attempt", i+1, "error", err)
			time.Sleep(c.config.RetryDelay * time.Duration(i+1))
			continue
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		logger.Debug("server error, retrying", "attempt", i+1, "status_code", resp.StatusCode)
		time.Sleep(c.config.RetryDelay * time.Duration(i+1))
	}

	logger.Error("request failed after all retries", "retry_count", c.config.RetryCount, "error", lastErr)
	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.RetryCount, lastErr)
}

// handleError converts a non-2xx response into an APIError.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
}
