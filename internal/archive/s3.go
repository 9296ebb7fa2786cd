// Package archive 将导入报告与日志归档到 S3 兼容存储
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Config 归档配置
type Config struct {
	Enabled   bool   `toml:"enabled"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Prefix    string `toml:"prefix"`
	PathStyle bool   `toml:"path_style"`
}

// Uploader 上传单个对象（便于测试替换）
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver 归档器
type Archiver struct {
	client Uploader
	bucket string
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// New 根据配置创建 S3 归档器；未启用时返回 nil, nil
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewWithClient 使用已有客户端
func NewWithClient(client Uploader, bucket, prefix string, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
		now:    time.Now,
	}
}

// ObjectKey <prefix>/<kind>/<yyyy/mm/dd>/<runID>/<文件名>
func (a *Archiver) ObjectKey(kind, runID, filename string) string {
	day := a.now().UTC().Format("2006/01/02")
	parts := []string{kind, day, runID, filepath.Base(filename)}
	if a.prefix != "" {
		parts = append([]string{a.prefix}, parts...)
	}
	return path.Join(parts...)
}

// UploadFile 上传本地文件，返回对象键
func (a *Archiver) UploadFile(ctx context.Context, kind, runID, localPath, contentType string) (string, error) {
	if a == nil {
		return "", nil
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	key := a.ObjectKey(kind, runID, localPath)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.logger.Info("archived file",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
	)
	return key, nil
}

// UploadFiles 依次上传，任何一个失败即返回
// files: 本地路径 -> Content-Type，空路径跳过
func (a *Archiver) UploadFiles(ctx context.Context, kind, runID string, files map[string]string) ([]string, error) {
	if a == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(files))
	for p, ct := range files {
		if p == "" {
			continue
		}
		key, err := a.UploadFile(ctx, kind, runID, p, ct)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
