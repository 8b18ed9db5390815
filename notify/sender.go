package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotificationFailed wraps every server-side send failure.
var ErrNotificationFailed = errors.New("notification failed")

// APIKeyHeader carries the shared secret the send-email endpoint checks.
const APIKeyHeader = "X-Notify-Key"

// Sender delivers a message through the server-side email endpoint.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendError carries the error payload returned by the email endpoint.
type SendError struct {
	StatusCode int
	Message    string `json:"error"`
	Details    string `json:"details"`
}

func (e *SendError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("email endpoint returned %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("email endpoint returned %d: %s", e.StatusCode, e.Message)
}

func (e *SendError) Unwrap() error {
	return ErrNotificationFailed
}

// HTTPSender posts messages as JSON to the send-email endpoint.
type HTTPSender struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// HTTPSenderOption configures an HTTPSender.
type HTTPSenderOption func(*HTTPSender)

// WithAPIKey sends key in the APIKeyHeader of every request.
func WithAPIKey(key string) HTTPSenderOption {
	return func(s *HTTPSender) {
		s.apiKey = key
	}
}

// NewHTTPSender creates a sender for endpoint. A zero timeout means the
// request waits as long as its context allows.
func NewHTTPSender(endpoint string, timeout time.Duration, opts ...HTTPSenderOption) (*HTTPSender, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("notify: endpoint is required")
	}
	s := &HTTPSender{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send posts msg and treats transport errors and non-2xx answers as failures.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal message: %v", ErrNotificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrNotificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set(APIKeyHeader, s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		sendErr := &SendError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, sendErr) != nil || sendErr.Message == "" {
			sendErr.Message = strings.TrimSpace(string(body))
		}
		return sendErr
	}

	return nil
}
