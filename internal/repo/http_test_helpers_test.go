package repo

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newRecordsTestClient(t *testing.T, rt roundTripFunc) *RecordsClient {
	t.Helper()
	client := NewRecordsClient(ClientConfig{
		BaseURL:  "https://records.example.com",
		APIKey:   "secret",
		Location: time.UTC,
	}, nil, nil)
	client.httpClient = newTestClient(rt)
	return client
}
