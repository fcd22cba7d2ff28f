package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signaldesk/internal/config"
	"signaldesk/internal/pkg/text"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	errorBodyLimit = 4096
	errorDetailMax = 512
)

// Client wraps the signal/order service REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	newID      func() string
	signals    *signalSchema
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// NewClient constructs a client from configuration.
func NewClient(cfg config.BackendConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend.base_url 不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("解析 backend.base_url 失败: %w", err)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	schema, err := compileSignalSchema()
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		token:      strings.TrimSpace(cfg.APIToken),
		newID:      uuid.NewString,
		signals:    schema,
	}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any, out any) error {
	raw, err := c.doRaw(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("解析 backend 响应失败(%s): %w", path, err)
	}
	return nil
}

// doRaw returns the raw response body of a 2xx answer.
func (c *Client) doRaw(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("backend client 未初始化")
	}
	endpoint, err := c.resolveEndpoint(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("序列化请求失败: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.newID())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用 backend %s %s 失败: %w", method, endpoint.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 backend 响应失败: %w", err)
	}
	return data, nil
}

// errorDetail prefers the service's {"detail": ...} field over the raw body.
func errorDetail(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" || !gjson.Valid(raw) {
		return text.Truncate(raw, errorDetailMax)
	}
	detail := gjson.Get(raw, "detail")
	switch {
	case !detail.Exists():
		return text.Truncate(raw, errorDetailMax)
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		msgs := make([]string, 0)
		detail.ForEach(func(_, item gjson.Result) bool {
			if msg := item.Get("msg").String(); msg != "" {
				msgs = append(msgs, msg)
			}
			return true
		})
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return detail.Raw
}

func (c *Client) resolveEndpoint(path string) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("backend API 地址未设置")
	}
	trimmed := strings.TrimSpace(path)
	query := ""
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		query = trimmed[idx+1:]
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		trimmed = "/"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	base := *c.baseURL
	base.Path = strings.TrimSuffix(base.Path, "/") + trimmed
	base.RawPath = ""
	base.RawQuery = query
	base.Fragment = ""
	return &base, nil
}
