package httpclient

import (
	"context"
	"net/http"
	"time"

	"sentinel-ledger/pkg/logger"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// CredentialStore 提供与清除 bearer token
type CredentialStore interface {
	Token() string
	Clear() error
}

// HTTPClientConfig 配置参数
type HTTPClientConfig struct {
	BaseURL    string        // 接口前缀，例如 http://localhost:8000/api/v1
	Timeout    time.Duration // 请求超时时间
	RateLimit  int           // 每分钟请求次数，0 表示不限
	MaxRetries int           // 最大重试次数
	UserAgent  string        // 可选 User-Agent

	// Credentials 为空时所有请求不带认证头
	Credentials CredentialStore
	// OnError 每个归一化错误都会回调一次，用于提示用户
	OnError func(e *Error)
	// Observe 请求结束回调，status 为 0 表示没有收到响应
	Observe func(method string, status int, elapsed time.Duration)
}

// HTTPClient 是一个通用的 HTTP 客户端
type HTTPClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	cfg     HTTPClientConfig
}

// NewHTTPClient 创建一个新的 HTTP 客户端
func NewHTTPClient(cfg HTTPClientConfig, logger *zap.Logger) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60), 1)
	}

	c := &HTTPClient{
		logger:  logger,
		limiter: limiter,
		cfg:     cfg,
	}

	// 创建 Resty 客户端
	c.client = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRequestMiddleware(c.beforeRequest).
		AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				logger.Debug("HTTP request failed",
					zap.Int("status", resp.StatusCode()),
					zap.String("url", resp.Request.URL),
				)
			}
			return nil
		})

	return c
}

func (c *HTTPClient) beforeRequest(_ *resty.Client, r *resty.Request) error {
	// 为限流器等待创建带超时的上下文
	limiterCtx, cancel := context.WithTimeout(r.Context(), c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(limiterCtx); err != nil {
		c.logger.Warn("Rate limiter wait failed", zap.Error(err))
		return err
	}
	if c.cfg.UserAgent != "" {
		r.SetHeader("User-Agent", c.cfg.UserAgent)
	}
	// 每次请求重新读取，401 清除后立即生效
	if c.cfg.Credentials != nil {
		if token := c.cfg.Credentials.Token(); token != "" {
			r.SetHeader("Authorization", "Bearer "+token)
		}
	}
	logger.InjectHeaders(r.Context(), r.Header)
	c.logger.Debug("Outgoing request", zap.String("method", r.Method), zap.String("url", r.URL))
	return nil
}

// Close 释放底层连接
func (c *HTTPClient) Close() error {
	return c.client.Close()
}

// BaseURL 返回接口前缀
func (c *HTTPClient) BaseURL() string {
	return c.cfg.BaseURL
}

// GetRaw 发起 GET 请求并返回原始响应体
func (c *HTTPClient) GetRaw(ctx context.Context, url string, queryParams map[string]string) ([]byte, error) {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(queryParams)
	return c.do(req, http.MethodGet, url)
}

// Get 发起 GET 请求并把响应体解码到 out
func (c *HTTPClient) Get(ctx context.Context, url string, queryParams map[string]string, out interface{}) error {
	body, err := c.GetRaw(ctx, url, queryParams)
	if err != nil {
		return err
	}
	return c.decode(http.MethodGet, url, body, out)
}

// PostJSON 发起 JSON POST 请求
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return &Error{Kind: KindClient, Code: "ENCODE_ERROR", Message: "Could not encode request", Method: http.MethodPost, URL: url, Err: err}
	}
	req := c.client.R().
		SetContext(ctx).
		SetBody(payload)

	raw, err := c.do(req, http.MethodPost, url)
	if err != nil {
		return err
	}
	return c.decode(http.MethodPost, url, raw, out)
}

func (c *HTTPClient) decode(method, url string, body []byte, out interface{}) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		e := &Error{Kind: KindDecode, Code: "DECODE_ERROR", Message: "Unexpected response format", Method: method, URL: url, Err: err}
		c.logger.Error("API response decode failed", zap.String("url", url), zap.Error(err))
		return e
	}
	return nil
}

// do 执行请求；成功返回响应体，失败统一走 classify
func (c *HTTPClient) do(req *resty.Request, method, url string) ([]byte, error) {
	start := time.Now()
	resp, err := req.Execute(method, url)

	status := 0
	var body []byte
	if resp != nil && resp.RawResponse != nil {
		status = resp.StatusCode()
		body = resp.Bytes()
	}
	if c.cfg.Observe != nil {
		c.cfg.Observe(method, status, time.Since(start))
	}

	if err == nil && status >= 200 && status < 300 {
		return body, nil
	}
	if err != nil {
		// 有响应时以状态码为准，否则按网络错误处理
		if status == 0 {
			body = nil
		}
	}

	e := classify(method, url, status, body, err)
	c.handle(e)
	return nil, e
}

// handle 分类后的副作用：401 清除凭证，429 告警，5xx 记录错误
func (c *HTTPClient) handle(e *Error) {
	switch e.Kind {
	case KindUnauthorized:
		if c.cfg.Credentials != nil {
			if err := c.cfg.Credentials.Clear(); err != nil {
				c.logger.Warn("clear credential failed", zap.Error(err))
			}
		}
		c.logger.Warn("API unauthorized, credential cleared", zap.String("url", e.URL))
	case KindRateLimited:
		c.logger.Warn("Rate limit exceeded", zap.String("url", e.URL))
	case KindServer, KindUnavailable:
		c.logger.Error("API server error", zap.String("url", e.URL), zap.Int("status", e.Status))
	case KindNetwork:
		c.logger.Error("API network error", zap.String("url", e.URL), zap.Error(e.Err))
	default:
		c.logger.Warn("API request failed", zap.String("url", e.URL), zap.Int("status", e.Status), zap.String("code", e.Code))
	}

	if c.cfg.OnError != nil {
		c.cfg.OnError(e)
	}
}
