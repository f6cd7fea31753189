package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/jimyag/netrca/pkg/batfish"
	"github.com/minio/minio-go/v7"
	minioCreds "github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver 把加载成功的暂存目录归档，失败不影响刷新结果
type Archiver interface {
	Archive(ctx context.Context, isolationKey, dir string) error
}

// ArchiveConfig 对象存储归档配置
type ArchiveConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// objectPutter minio.Client 中归档用到的方法
type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStoreArchiver 把暂存目录打包成 zip 上传到 S3 兼容的对象存储
type ObjectStoreArchiver struct {
	client objectPutter
	bucket string
	prefix string
}

var _ Archiver = (*ObjectStoreArchiver)(nil)

// NewObjectStoreArchiver 创建对象存储归档
func NewObjectStoreArchiver(cfg ArchiveConfig) (*ObjectStoreArchiver, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("object storage credentials are not configured")
	}
	client, err := minio.New(strings.TrimSpace(cfg.Endpoint), &minio.Options{
		Creds:  minioCreds.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &ObjectStoreArchiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ObjectKey 归档对象的 key
func (a *ObjectStoreArchiver) ObjectKey(isolationKey string) string {
	return path.Join(a.prefix, isolationKey+".zip")
}

// Archive 实现 Archiver 接口
func (a *ObjectStoreArchiver) Archive(ctx context.Context, isolationKey, dir string) error {
	data, err := batfish.Bundle(dir)
	if err != nil {
		return fmt.Errorf("bundle %s: %w", dir, err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, a.ObjectKey(isolationKey), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
