// Package publish 将数据集与报告上传到 S3（或兼容 S3 的对象存储）。
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader S3 客户端中用到的部分，便于测试替换
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config S3 发布配置，留空的字段使用 AWS 默认配置链
type Config struct {
	Bucket       string
	Region       string
	Profile      string
	Endpoint     string // 兼容 S3 的服务地址，例如 MinIO
	UsePathStyle bool
}

// S3Publisher 上传器
type S3Publisher struct {
	client Uploader
	bucket string
}

// NewS3Publisher 使用 AWS 默认配置链创建上传器
func NewS3Publisher(ctx context.Context, cfg Config) (*S3Publisher, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required (s3.bucket or S3_BUCKET)")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3PublisherWithClient(client, cfg.Bucket), nil
}

// NewS3PublisherWithClient 使用已有客户端创建上传器
func NewS3PublisherWithClient(client Uploader, bucket string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket}
}

// ObjectKey 拼接对象键：<prefix>/<rel>，统一使用正斜杠
func ObjectKey(prefix, rel string) string {
	rel = strings.TrimLeft(filepath.ToSlash(rel), "/")
	prefix = strings.Trim(filepath.ToSlash(prefix), "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// UploadFile 上传单个文件
func (p *S3Publisher) UploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("打开 %s 失败: %w", localPath, err)
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := contentType(localPath); ct != "" {
		in.ContentType = aws.String(ct)
	}

	if _, err := p.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("上传 s3://%s/%s 失败: %w", p.bucket, key, err)
	}
	return nil
}

// UploadDir 递归上传目录下的所有文件，返回已上传的对象键
func (p *S3Publisher) UploadDir(ctx context.Context, dir, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(dir, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, fpath)
		if err != nil {
			return err
		}
		key := ObjectKey(prefix, rel)
		if err := p.UploadFile(ctx, fpath, key); err != nil {
			return err
		}
		log.Printf("✅ 已上传 s3://%s/%s\n", p.bucket, key)
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return keys, err
	}
	return keys, nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	}
	return mime.TypeByExtension(filepath.Ext(name))
}
