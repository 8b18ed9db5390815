package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("API error (%d): %s %v", e.StatusCode, e.Message, e.Fields)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the Repair Desk API. It holds one session
// cookie from Login until Close.
type Client struct {
	baseURL    string
	accessCode string
	httpClient *http.Client
	debug      bool
}

// NewClient creates a client without signing in.
func NewClient(baseURL, accessCode string, debug bool) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		accessCode: accessCode,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		debug: debug,
	}, nil
}

func getClient() (*Client, error) {
	client, err := NewClient(getConfigURL(), getConfigAccessCode(), flagDebug)
	if err != nil {
		return nil, err
	}
	if err := client.Login(); err != nil {
		return nil, err
	}
	return client, nil
}

// Login opens a session on the server.
func (c *Client) Login() error {
	_, err := c.Post("/api/v1/session", LoginRequest{AccessCode: c.accessCode})
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	return nil
}

// Close ends the session so the server releases its workspace.
func (c *Client) Close() error {
	_, err := c.Delete("/api/v1/session", nil)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Content-Type", "application/json")

	if c.debug {
		fmt.Fprintf(os.Stderr, "DEBUG: %s %s\n", req.Method, req.URL.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "DEBUG: Status %d\n", resp.StatusCode)
		fmt.Fprintf(os.Stderr, "DEBUG: Body: %s\n", string(body))
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Fields: errResp.Fields}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return body, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) Get(path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.url(path, query), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) Post(path string, body interface{}) ([]byte, error) {
	return c.send(http.MethodPost, path, body)
}

func (c *Client) Put(path string, body interface{}) ([]byte, error) {
	return c.send(http.MethodPut, path, body)
}

func (c *Client) send(method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.url(path, nil), reader)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) Delete(path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodDelete, c.url(path, query), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}
