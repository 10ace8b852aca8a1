package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ipCacheTTL 查询结果缓存时间
const ipCacheTTL = time.Hour

// IPInfo IP 查询结果
type IPInfo struct {
	IP      string                 `json:"ip"`
	Version int                    `json:"version"`
	Private bool                   `json:"private"`
	Geo     map[string]interface{} `json:"geo,omitempty"`
	Cached  bool                   `json:"cached"`
}

// IPLookup 带进程内 LRU 缓存的 IP 地理信息查询
//
// baseURL 为空时只返回本地可判定的信息。
type IPLookup struct {
	baseURL string
	http    *http.Client
	cache   *lru.LRU[string, map[string]interface{}]
}

// NewIPLookup 创建 IP 查询器
func NewIPLookup(baseURL string, cacheSize int, timeout time.Duration) *IPLookup {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cache:   lru.NewLRU[string, map[string]interface{}](cacheSize, nil, ipCacheTTL),
	}
}

// Lookup 查询 IP；私有地址与未配置上游时不发起请求
func (l *IPLookup) Lookup(ctx context.Context, raw string) (*IPInfo, error) {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return nil, fmt.Errorf("invalid ip %q", raw)
	}
	info := &IPInfo{IP: ip.String(), Version: 6, Private: ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()}
	if ip.To4() != nil {
		info.Version = 4
	}
	if info.Private || l.baseURL == "" {
		return info, nil
	}

	if geo, ok := l.cache.Get(info.IP); ok {
		info.Geo, info.Cached = geo, true
		return info, nil
	}
	geo, err := l.fetch(ctx, info.IP)
	if err != nil {
		return info, err
	}
	l.cache.Add(info.IP, geo)
	info.Geo = geo
	return info, nil
}

func (l *IPLookup) fetch(ctx context.Context, ip string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ip lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}
	var geo map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&geo); err != nil {
		return nil, fmt.Errorf("failed to decode ip lookup: %w", err)
	}
	return geo, nil
}

// Len 当前缓存条目数
func (l *IPLookup) Len() int {
	return l.cache.Len()
}
