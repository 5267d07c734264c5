package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"startup_edu_backend/internal/config"
	"startup_edu_backend/internal/util"
	"startup_edu_backend/pkg/logger"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageService 课程封面与课节视频的文件存储，支持本地与MinIO两种后端
type StorageService struct {
	Cfg         *config.StorageConfig
	minioClient *minio.Client
}

func NewStorageService(cfg *config.StorageConfig) (*StorageService, error) {
	if cfg.Type == "" {
		cfg.Type = util.StorageLocal
	}
	s := &StorageService{Cfg: cfg}

	if cfg.Type == util.StorageMinio {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds: credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("minio client init failed: %w", err)
		}
		s.minioClient = client

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		exists, err := client.BucketExists(ctx, cfg.MinioBucket)
		if err != nil {
			return nil, fmt.Errorf("minio bucket check failed: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("minio bucket creation failed: %w", err)
			}
		}
	}

	return s, nil
}

// UploadFile 保存上传文件，返回可访问的URL路径
func (s *StorageService) UploadFile(ctx context.Context, file *multipart.FileHeader, dir string) (string, error) {
	ext := filepath.Ext(file.Filename)
	objectName := fmt.Sprintf("%s/%s%s", dir, uuid.New().String(), ext)

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if s.Cfg.Type == util.StorageMinio {
		_, err := s.minioClient.PutObject(ctx, s.Cfg.MinioBucket, objectName, src, file.Size, minio.PutObjectOptions{
			ContentType: file.Header.Get("Content-Type"),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("/%s/%s", s.Cfg.MinioBucket, objectName), nil
	}

	localPath := filepath.Join(s.Cfg.LocalPath, objectName)
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return "", err
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return "/uploads/" + objectName, nil
}

// UploadLessonVideo 保存课节视频并用ffmpeg探测时长
// MinIO后端下会先落本地临时文件用于探测，探测失败不阻塞上传，时长记0。
func (s *StorageService) UploadLessonVideo(ctx context.Context, file *multipart.FileHeader) (string, float64, error) {
	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(file.Filename))
	src, err := file.Open()
	if err != nil {
		return "", 0, err
	}
	tmp, err := os.Create(tmpPath)
	if err != nil {
		src.Close()
		return "", 0, err
	}
	_, copyErr := io.Copy(tmp, src)
	tmp.Close()
	src.Close()
	defer os.Remove(tmpPath)
	if copyErr != nil {
		return "", 0, copyErr
	}

	duration := 0.0
	if info, err := util.ProbeVideo(tmpPath); err != nil {
		logger.Log.Warn("video probe failed, storing without duration",
			zap.String("filename", file.Filename),
			zap.Error(err))
	} else {
		duration = info.Duration
	}

	url, err := s.UploadFile(ctx, file, "videos")
	if err != nil {
		return "", 0, err
	}
	return url, duration, nil
}

// DeleteFile 按UploadFile返回的URL删除文件，路径不合法时静默忽略
func (s *StorageService) DeleteFile(ctx context.Context, fileURL string) error {
	if s.Cfg.Type == util.StorageMinio {
		prefix := "/" + s.Cfg.MinioBucket + "/"
		if !strings.HasPrefix(fileURL, prefix) {
			return nil
		}
		return s.minioClient.RemoveObject(ctx, s.Cfg.MinioBucket, strings.TrimPrefix(fileURL, prefix), minio.RemoveObjectOptions{})
	}

	if !strings.HasPrefix(fileURL, "/uploads/") {
		return nil
	}
	localPath := filepath.Join(s.Cfg.LocalPath, strings.TrimPrefix(fileURL, "/uploads/"))
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
