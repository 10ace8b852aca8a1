// Package objstore 封装 MinIO 对象存储客户端（媒体库文件）
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"codefix-admin/internal/config"
)

// DefaultBucket 未配置 bucket 时使用
const DefaultBucket = "codefix-media"

var (
	errNoEndpoint    = errors.New("objstore: endpoint not configured")
	errNoCredentials = errors.New("objstore: MINIO_ROOT_USER and MINIO_ROOT_PASSWORD must both be set")
)

// Client 媒体 bucket 的读写入口
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

// NewClient 按配置创建客户端，不做网络调用
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, errNoEndpoint
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, errNoCredentials
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: %w", err)
	}
	c := &Client{mc: mc, bucket: cfg.Bucket, publicURL: cfg.PublicURL}
	if c.bucket == "" {
		c.bucket = DefaultBucket
	}
	return c, nil
}

// Bucket 实际使用的 bucket 名
func (c *Client) Bucket() string { return c.bucket }

// EnsureBucket 启动时创建缺失的 bucket
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("objstore: bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("objstore: make bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Upload 上传对象
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.mc.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Download 下载对象，调用方负责关闭返回的 ReadCloser
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	// 验证对象存在（GetObject 不会立即返回错误）
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return obj, nil
}

// Delete 删除对象
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

// URL 返回对象的对外访问地址
//
// 配置了 public_url 时直接拼接；否则走 API Server 的 /media/ 代理路由。
func (c *Client) URL(key string) string {
	return ObjectURL(c.publicURL, key)
}

// ObjectURL 拼接对象访问地址
func ObjectURL(publicURL, key string) string {
	if publicURL == "" {
		return "/media/" + key
	}
	return strings.TrimRight(publicURL, "/") + "/" + key
}
