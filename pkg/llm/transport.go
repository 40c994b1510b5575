package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPResponse is the status and body returned by a Transport.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

// Transport posts a JSON body to an endpoint. It returns an error only for
// connection-level failures; any HTTP status is reported in the response.
type Transport interface {
	Post(ctx context.Context, endpoint string, body []byte, headers []Header) (*HTTPResponse, error)
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport whose requests time out after timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
	}
}

// Post sends body as a JSON POST request.
func (t *HTTPTransport) Post(ctx context.Context, endpoint string, body []byte, headers []Header) (*HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &HTTPResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
