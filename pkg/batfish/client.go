package batfish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jimyag/netrca/pkg/idgen"
)

const (
	// DefaultAPIKey Batfish 默认的 API key
	DefaultAPIKey = "00000000000000000000000000000000"
	// DefaultPort Batfish v2 API 端口
	DefaultPort = 9996

	clientVersion = "2024.11.4"
)

var (
	// ErrSnapshotNotFound 快照未在后端加载
	ErrSnapshotNotFound = errors.New("batfish snapshot not found")
	// ErrUnreachable 后端不可达（连接失败、超时）
	ErrUnreachable = errors.New("batfish unreachable")
)

// StatusError 后端返回了非 2xx 状态码
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("batfish %s failed (HTTP %d): %s", e.Op, e.StatusCode, body)
}

// Config HTTP 客户端配置
type Config struct {
	Host          string
	Port          int
	UseTLS        bool
	APIKey        string
	Timeout       time.Duration // 单次请求超时，0 表示不限制
	HealthTimeout time.Duration
}

// HTTPClient 基于 Batfish v2 REST API 的 Client 实现
type HTTPClient struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	healthTimeout time.Duration
}

var _ Client = (*HTTPClient)(nil)

// New 创建新的 HTTPClient
func New(cfg Config) (*HTTPClient, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, fmt.Errorf("batfish host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	scheme := "http"
	if cfg.UseTLS {
		scheme = "https"
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	healthTimeout := cfg.HealthTimeout
	if healthTimeout == 0 {
		healthTimeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL:       fmt.Sprintf("%s://%s:%d", scheme, host, port),
		apiKey:        apiKey,
		client:        &http.Client{Timeout: cfg.Timeout},
		healthTimeout: healthTimeout,
	}, nil
}

// BaseURL 返回后端地址
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) do(ctx context.Context, method, rawPath string, query url.Values, body io.Reader, contentType string) (*http.Response, []byte, error) {
	endpoint := c.baseURL + rawPath
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Batfish-Apikey", c.apiKey)
	req.Header.Set("X-Batfish-Version", clientVersion)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read response: %w", ErrUnreachable, err)
	}
	return resp, data, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, rawPath string, query url.Values, payload any) (*http.Response, []byte, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return c.do(ctx, method, rawPath, query, body, contentType)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func networkPath(network string) string {
	return "/v2/networks/" + url.PathEscape(network)
}

func snapshotPath(network, snapshot string) string {
	return networkPath(network) + "/snapshots/" + url.PathEscape(snapshot)
}

func questionPath(network, question string) string {
	return networkPath(network) + "/questions/" + url.PathEscape(question)
}

// EnsureNetwork 实现 Client 接口
func (c *HTTPClient) EnsureNetwork(ctx context.Context, network string) error {
	resp, body, err := c.do(ctx, http.MethodGet, networkPath(network), nil, nil, "")
	if err != nil {
		return err
	}
	if isSuccess(resp.StatusCode) {
		return nil
	}
	if resp.StatusCode != http.StatusNotFound {
		return &StatusError{Op: "get network", StatusCode: resp.StatusCode, Body: string(body)}
	}
	resp, body, err = c.do(ctx, http.MethodPut, networkPath(network), nil, nil, "")
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) && resp.StatusCode != http.StatusConflict {
		return &StatusError{Op: "create network", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// snapshotExists 检查快照是否已加载
func (c *HTTPClient) snapshotExists(ctx context.Context, network, snapshot string) (bool, error) {
	resp, body, err := c.do(ctx, http.MethodGet, snapshotPath(network, snapshot), nil, nil, "")
	if err != nil {
		return false, err
	}
	switch {
	case isSuccess(resp.StatusCode):
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &StatusError{Op: "get snapshot", StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// InitSnapshot 实现 Client 接口
func (c *HTTPClient) InitSnapshot(ctx context.Context, network, snapshot, dir string, overwrite bool) error {
	exists, err := c.snapshotExists(ctx, network, snapshot)
	if err != nil {
		return err
	}
	if exists {
		if !overwrite {
			return fmt.Errorf("snapshot %s already exists in network %s", snapshot, network)
		}
		resp, body, err := c.do(ctx, http.MethodDelete, snapshotPath(network, snapshot), nil, nil, "")
		if err != nil {
			return err
		}
		if !isSuccess(resp.StatusCode) && resp.StatusCode != http.StatusNotFound {
			return &StatusError{Op: "delete snapshot", StatusCode: resp.StatusCode, Body: string(body)}
		}
	}

	bundle, err := Bundle(dir)
	if err != nil {
		return fmt.Errorf("bundle snapshot dir: %w", err)
	}
	resp, body, err := c.do(ctx, http.MethodPost, snapshotPath(network, snapshot), nil, bytes.NewReader(bundle), "application/octet-stream")
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return &StatusError{Op: "upload snapshot", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// Session 实现 Client 接口
func (c *HTTPClient) Session(ctx context.Context, network, snapshot string) (Session, error) {
	exists, err := c.snapshotExists(ctx, network, snapshot)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrSnapshotNotFound, network, snapshot)
	}
	return &httpSession{client: c, network: network, snapshot: snapshot}, nil
}

// Health 实现 Client 接口
func (c *HTTPClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	resp, body, err := c.do(ctx, http.MethodGet, "/v2/question_templates", nil, nil, "")
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("%w: %w", ErrUnreachable, &StatusError{Op: "health", StatusCode: resp.StatusCode, Body: string(body)})
	}
	return nil
}

type httpSession struct {
	client   *HTTPClient
	network  string
	snapshot string
}

func (s *httpSession) Network() string  { return s.network }
func (s *httpSession) Snapshot() string { return s.snapshot }

// Answer 先注册问题实例，再按快照取答案，最后尽力删除问题实例
// 问题实例名带随机后缀，共享 network 下的并发查询互不覆盖
func (s *httpSession) Answer(ctx context.Context, q Question) (*Table, error) {
	instance := q.Name + "_" + idgen.RandomHex(12)
	resp, body, err := s.client.doJSON(ctx, http.MethodPut, questionPath(s.network, instance), nil, q.payload(instance))
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Op: "put question " + q.Name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	defer func() {
		_, _, _ = s.client.do(context.WithoutCancel(ctx), http.MethodDelete, questionPath(s.network, instance), nil, nil, "")
	}()

	query := url.Values{}
	query.Set("snapshot", s.snapshot)
	resp, body, err = s.client.do(ctx, http.MethodGet, questionPath(s.network, instance)+"/answer", query, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrSnapshotNotFound, s.network, s.snapshot)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Op: "answer " + q.Name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	table, err := ParseAnswer(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s answer: %w", q.Name, err)
	}
	return table, nil
}
