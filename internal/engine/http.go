package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/roach88/logicflow/internal/ir"
)

// maxResponseBody caps how much of a response body is read.
const maxResponseBody = 10 * 1024 * 1024

// HTTPDoer sends requests for Http and ApiConnection steps.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is a resolved Http or ApiConnection call.
type Request struct {
	Method  string
	URI     string
	Headers map[string]string
	Queries map[string]string
	Body    any
}

// send performs req and returns {statusCode, headers, body}.
//
// A non-string body is sent as canonical JSON. A response body that parses
// as JSON is decoded; anything else is kept as text. Non-2xx statuses are
// results, not errors.
func send(ctx context.Context, doer HTTPDoer, req Request) (map[string]any, error) {
	uri, err := url.Parse(req.URI)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", req.URI, err)
	}
	if len(req.Queries) > 0 {
		query := uri.Query()
		for k, v := range req.Queries {
			query.Set(k, v)
		}
		uri.RawQuery = query.Encode()
	}

	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		data, err := ir.MarshalCanonical(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := strings.ToUpper(req.Method)
	httpReq, err := http.NewRequestWithContext(ctx, method, uri.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, uri.Redacted(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return map[string]any{
		"statusCode": int64(resp.StatusCode),
		"headers":    headers,
		"body":       decodeBody(data),
	}, nil
}

func decodeBody(data []byte) any {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return string(data)
	}
	return ir.Normalize(gjson.ParseBytes(data).Value())
}

// MockResponse is a canned reply served by MockHTTP.
type MockResponse struct {
	Status  int               `yaml:"status" json:"status"`
	Headers map[string]string `yaml:"headers" json:"headers"`
	Body    any               `yaml:"body" json:"body"`
}

// RecordedRequest is a request MockHTTP received.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// MockHTTP answers requests without touching the network.
//
// Responses are matched by "METHOD url" first, then by url alone, where url
// excludes the query string. Unmatched requests get 200 OK with an empty
// body. Every request is recorded.
type MockHTTP struct {
	Responses map[string]MockResponse

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewMockHTTP creates a mock serving the given responses.
func NewMockHTTP(responses map[string]MockResponse) *MockHTTP {
	return &MockHTTP{Responses: responses}
}

// Do records req and returns the matching canned response.
func (m *MockHTTP) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = data
	}

	base := *req.URL
	base.RawQuery = ""
	key := base.String()

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   string(body),
	})
	m.mu.Unlock()

	canned, ok := m.Responses[req.Method+" "+key]
	if !ok {
		canned, ok = m.Responses[key]
	}
	if !ok {
		canned = MockResponse{Status: http.StatusOK}
	}
	return canned.response(req)
}

// Requests returns the recorded requests in arrival order.
func (m *MockHTTP) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

func (r MockResponse) response(req *http.Request) (*http.Response, error) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	var data []byte
	switch b := r.Body.(type) {
	case nil:
	case string:
		data = []byte(b)
	default:
		encoded, err := ir.MarshalCanonical(ir.Normalize(b))
		if err != nil {
			return nil, fmt.Errorf("mock body: %w", err)
		}
		data = encoded
	}

	header := make(http.Header, len(r.Headers))
	for k, v := range r.Headers {
		header.Set(k, v)
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		Request:       req,
	}, nil
}
