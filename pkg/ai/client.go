// Package ai 提供对外部大语言模型服务商的统一适配：
// 确定目标服务商、构造请求、带限流重试地发送，并对异构响应做防御式解析。
// Groq（OpenAI 兼容）、Google Generative Language 与泛化 Bearer JSON 接口
// 被归一到同一个内部契约；未配置任何凭证时进入本地回显模式。
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"aira-go/internal/config"
	"aira-go/pkg/log"
)

const (
	localEchoPrefix = "I heard: "
	apologyText     = "Aira is having trouble reaching the AI service right now. Please try again in a moment."
)

// ErrNotConfigured 表示既没有 API key 也没有端点可供探测。
var ErrNotConfigured = errors.New("ai provider not configured")

// Reply 是适配器唯一的输出类型。
// 上游调用失败时 Err 非空，Text 携带对用户安全的兜底文案；适配器从不向外抛错。
type Reply struct {
	Text string
	Meta json.RawMessage
	Err  string
}

// ProbeResult 是连通性探测的结果。
type ProbeResult struct {
	Provider    string      `json:"provider"`
	Model       string      `json:"model"`
	StatusCode  int         `json:"status_code"`
	BodyPreview interface{} `json:"body_preview"`
}

// Client 定义了 AI 适配器的对外接口。
type Client interface {
	// Generate 为一条用户消息生成回复，任何上游故障都被降级为兜底 Reply。
	Generate(ctx context.Context, message string) Reply
	// Probe 对配置的服务商做一次轻量连通性探测，短超时且不重试。
	Probe(ctx context.Context) (*ProbeResult, error)
}

type client struct {
	cfg         config.AIConfig
	liveClient  *http.Client
	probeClient *http.Client
	sleep       func(time.Duration)
}

// Option 用于调整 Client 的内部行为。
type Option func(*client)

// WithHTTPClient 替换默认的 HTTP 客户端（主要用于测试）。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.liveClient = hc
		c.probeClient = hc
	}
}

// WithSleep 替换重试间隔的等待函数（主要用于测试）。
func WithSleep(fn func(time.Duration)) Option {
	return func(c *client) {
		c.sleep = fn
	}
}

// NewClient 创建一个新的 AI 适配器实例。
func NewClient(cfg config.AIConfig, opts ...Option) Client {
	c := &client{
		cfg:         cfg,
		liveClient:  &http.Client{Timeout: liveTimeout},
		probeClient: &http.Client{Timeout: probeTimeout},
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate 实现 Client 接口。
func (c *client) Generate(ctx context.Context, message string) Reply {
	res := resolve(c.cfg)
	if res.provider == providerLocalEcho {
		// 离线开发模式：零网络调用，确定性回显
		return Reply{Text: localEchoPrefix + message, Meta: json.RawMessage(`{"source":"local-echo"}`)}
	}

	headers, payload := buildRequest(c.cfg, res, message)

	// 不记录 API key
	log.Infof("Calling AI API (%s) at %s", res.provider, res.url)
	data, raw, err := c.postJSON(ctx, c.liveClient, res.url, headers, payload)
	if err != nil {
		log.Error("AI API call failed", err)
		return Reply{Text: apologyText, Err: err.Error()}
	}
	return Reply{Text: extractReply(data), Meta: raw}
}

// Probe 实现 Client 接口。
func (c *client) Probe(ctx context.Context) (*ProbeResult, error) {
	res := resolve(c.cfg)
	if res.url == "" || c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	headers, payload := buildProbeRequest(c.cfg, res)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := newJSONRequest(ctx, res.url, headers, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.probeClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var preview interface{}
	if err := json.Unmarshal(respBody, &preview); err != nil {
		preview = map[string]string{"text": truncate(string(respBody), 200)}
	}

	return &ProbeResult{
		Provider:    string(res.provider),
		Model:       c.cfg.Model,
		StatusCode:  resp.StatusCode,
		BodyPreview: preview,
	}, nil
}
