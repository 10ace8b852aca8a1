package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream 上游执行服务失败（网络错误、超时或非 2xx）
var ErrUpstream = errors.New("executor upstream failed")

// maxResponseSize 上游响应体上限
const maxResponseSize = 1 << 20

// ClientConfig 执行服务客户端配置
type ClientConfig struct {
	URL              string
	CompileTimeoutMS int
	RunTimeoutMS     int
	MemoryLimitBytes int64
	RequestTimeout   time.Duration
}

// Client 执行服务客户端
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient 创建执行服务客户端
func NewClient(cfg ClientConfig) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.CompileTimeoutMS <= 0 {
		cfg.CompileTimeoutMS = 10000
	}
	if cfg.RunTimeoutMS <= 0 {
		cfg.RunTimeoutMS = 3000
	}
	if cfg.MemoryLimitBytes == 0 {
		cfg.MemoryLimitBytes = -1
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: cfg.RequestTimeout,
			},
		},
	}
}

type executeFile struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type executeRequest struct {
	Language           string        `json:"language"`
	Version            string        `json:"version"`
	Files              []executeFile `json:"files"`
	Stdin              string        `json:"stdin"`
	Args               []string      `json:"args"`
	CompileTimeout     int           `json:"compile_timeout"`
	RunTimeout         int           `json:"run_timeout"`
	CompileMemoryLimit int64         `json:"compile_memory_limit"`
	RunMemoryLimit     int64         `json:"run_memory_limit"`
}

// Stage 编译或运行阶段的输出
type Stage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

// Result 执行结果
type Result struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Run      Stage  `json:"run"`
	Compile  *Stage `json:"compile,omitempty"`
}

// Execute 把源码提交到执行服务
func (c *Client) Execute(ctx context.Context, lang Language, code, stdin string, args []string) (*Result, error) {
	if args == nil {
		args = []string{}
	}
	payload := executeRequest{
		Language:           lang.Runtime,
		Version:            lang.Version,
		Files:              []executeFile{{Name: lang.File, Content: code}},
		Stdin:              stdin,
		Args:               args,
		CompileTimeout:     c.cfg.CompileTimeoutMS,
		RunTimeout:         c.cfg.RunTimeoutMS,
		CompileMemoryLimit: c.cfg.MemoryLimitBytes,
		RunMemoryLimit:     c.cfg.MemoryLimitBytes,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute request: %w", err)
	}

	url := strings.TrimRight(c.cfg.URL, "/") + "/execute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, upstreamMessage(data))
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrUpstream, err)
	}
	return &result, nil
}

// upstreamMessage 提取上游错误消息，回退为截断的原文
func upstreamMessage(data []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
		return msg.Message
	}
	s := string(data)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
