package httpds

import (
	"context"
	"io"
	"sync"
)

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns a shared Client with default settings.
func Default() *Client {
	defaultOnce.Do(func() { defaultClient = NewClient(Config{}) })
	return defaultClient
}

// Source is a remote file. It satisfies datasource.Source.
type Source struct {
	client *Client
	url    string
}

// NewSource returns a Source for url. A nil client uses Default.
func NewSource(c *Client, url string) *Source {
	if c == nil {
		c = Default()
	}
	return &Source{client: c, url: url}
}

// Open fetches the file and returns the response body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
