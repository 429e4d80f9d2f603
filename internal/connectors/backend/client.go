package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"
)

const defaultMaxDownloadBytes = 64 << 20

// Observer receives one call per backend request with its logical endpoint name.
type Observer func(endpoint string, durationSeconds float64, err error)

// Option configures a Client.
type Option func(*Client)

// WithObserver reports every call to fn.
func WithObserver(fn Observer) Option {
	return func(c *Client) { c.observe = fn }
}

// WithMaxDownloadBytes caps the size of report downloads.
func WithMaxDownloadBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxDownload = n
		}
	}
}

// Client is a typed client for the analysis backend.
type Client struct {
	baseURL     string
	http        *http.Client
	observe     Observer
	maxDownload int64
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:        &http.Client{Timeout: timeout},
		maxDownload: defaultMaxDownloadBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
}

func (c *Client) send(ctx context.Context, endpoint string, r request) (*http.Response, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s: backend url not configured", endpoint)
	}
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Detail: errorDetail(blob)}
	}
	return resp, nil
}

// doJSON sends r and decodes the body into out. A nil out discards the body.
func (c *Client) doJSON(ctx context.Context, endpoint string, r request, out any) (err error) {
	start := time.Now()
	defer func() { c.record(endpoint, start, err) }()

	resp, err := c.send(ctx, endpoint, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", endpoint, ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, endpoint string, r request, fallbackName string) (d *Download, err error) {
	start := time.Now()
	defer func() { c.record(endpoint, start, err) }()

	resp, err := c.send(ctx, endpoint, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	if int64(len(body)) > c.maxDownload {
		return nil, fmt.Errorf("%s: download exceeds %d bytes", endpoint, c.maxDownload)
	}
	return &Download{
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition"), fallbackName),
		ContentType: firstNonEmpty(resp.Header.Get("Content-Type"), "application/octet-stream"),
		Body:        body,
	}, nil
}

func (c *Client) record(endpoint string, start time.Time, err error) {
	if c.observe != nil {
		c.observe(endpoint, time.Since(start).Seconds(), err)
	}
}

func formRequest(method, p, token string, fields url.Values) request {
	return request{
		method:      method,
		path:        p,
		token:       token,
		body:        strings.NewReader(fields.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
}

type filePart struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(method, p, token string, fields url.Values, file *filePart) (request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := mw.WriteField(k, v); err != nil {
				return request{}, err
			}
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile(file.field, file.name)
		if err != nil {
			return request{}, err
		}
		if _, err := fw.Write(file.data); err != nil {
			return request{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return request{}, err
	}
	return request{
		method:      method,
		path:        p,
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, nil
}

func filenameFromDisposition(header, fallback string) string {
	if header != "" {
		if _, params, err := mime.ParseMediaType(header); err == nil {
			if name := path.Base(strings.ReplaceAll(params["filename"], `\`, "/")); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
