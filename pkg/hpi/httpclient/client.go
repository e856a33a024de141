// Package httpclient performs the requests issued by the Http builtin.
package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent when neither the options nor the program set one.
const DefaultUserAgent = "hpi/1.0"

// Options configures a Client.
type Options struct {
	Timeout   time.Duration // zero means 30s
	UserAgent string
	Cookies   bool // keep cookies between requests of one run
}

// Client implements evaluator.HTTPClient over net/http.
type Client struct {
	http      *http.Client
	userAgent string
}

// New creates a client. Responses compressed with gzip or zstd are decoded
// transparently.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: gzhttp.Transport(http.DefaultTransport),
	}
	if opts.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client.Jar = jar
	}

	return &Client{http: client, userAgent: userAgent}, nil
}

// Request sends one request and returns the status code and body text.
func (c *Client) Request(method, url, body string, headers map[string]string) (uint16, string, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(strings.ToUpper(method), url, bodyReader)
	if err != nil {
		return 0, "", fmt.Errorf("Anfrage konnte nicht erstellt werden: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("Antwort konnte nicht gelesen werden: %w", err)
	}
	return uint16(resp.StatusCode), string(data), nil
}
