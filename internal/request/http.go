package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// HTTPTransport performs calls over HTTP with JSON bodies.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// NewHTTPTransport creates a transport resolving relative paths against
// baseURL.
func NewHTTPTransport(baseURL string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do performs the call and decodes a JSON response body.
// Non-2xx responses fail with *RequestError carrying the decoded body.
func (t *HTTPTransport) Do(ctx context.Context, call *Call) (any, error) {
	target := t.resolve(BuildPath(call.Path, call.Args))

	req, err := t.newRequest(ctx, call, target)
	if err != nil {
		return nil, &RequestError{Method: call.Method, URL: target, Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &RequestError{Method: call.Method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if call.Progress != nil {
		r = &progressReader{r: resp.Body, total: resp.ContentLength, report: call.Progress}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &RequestError{Method: call.Method, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	body, decodeErr := decodeBody(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr != nil {
			body = string(raw)
		}
		return nil, &RequestError{Method: call.Method, URL: target, StatusCode: resp.StatusCode, Body: body}
	}
	if decodeErr != nil {
		return nil, &RequestError{
			Method:     call.Method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", decodeErr),
		}
	}
	return body, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, call *Call, target string) (*http.Request, error) {
	var body io.Reader

	if call.Data != nil {
		if call.Method == http.MethodGet || call.Method == http.MethodDelete {
			q, err := queryValues(call.Data)
			if err != nil {
				return nil, err
			}
			if enc := q.Encode(); enc != "" {
				sep := "?"
				if strings.Contains(target, "?") {
					sep = "&"
				}
				target += sep + enc
			}
		} else {
			buf, err := json.Marshal(call.Data)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(buf)
		}
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (t *HTTPTransport) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || t.baseURL == "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.baseURL + path
}

// BuildPath replaces ":name" placeholders with the matching args. Longer
// names are substituted first so ":idx" is not clobbered by ":id".
func BuildPath(template string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if len(keys[a]) != len(keys[b]) {
			return len(keys[a]) > len(keys[b])
		}
		return keys[a] < keys[b]
	})

	for _, k := range keys {
		template = strings.ReplaceAll(template, ":"+k, url.PathEscape(fmt.Sprint(args[k])))
	}
	return template
}

func queryValues(data any) (url.Values, error) {
	q := url.Values{}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("query data must be an object, got %T", data)
	}
	for k, v := range m {
		switch tv := v.(type) {
		case []any:
			for _, e := range tv {
				q.Add(k, fmt.Sprint(e))
			}
		default:
			q.Set(k, fmt.Sprint(tv))
		}
	}
	return q, nil
}

func decodeBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type progressReader struct {
	r      io.Reader
	done   int64
	total  int64
	report func(done, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.report(p.done, p.total)
	}
	return n, err
}
