package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"asterplayer/config"
	"asterplayer/logger"
)

// MediaPrefix is the public path offloaded objects are served under.
const MediaPrefix = "/media/"

const audioFolder = "audio/"

// ErrNotDataURI is returned by ParseDataURI for anything but a data: URL.
var ErrNotDataURI = errors.New("not a data URI")

// AudioVault moves inline (data URI) audio out of track records and into
// object storage, and streams it back for playback.
type AudioVault struct {
	client *minio.Client
	bucket string
	region string
}

// ObjectInfo describes one stored audio object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// BucketStats summarizes the vault contents.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// NewAudioVault connects to MinIO and makes sure the bucket exists.
func NewAudioVault(ctx context.Context, cfg *config.Config) (*AudioVault, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	v := &AudioVault{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}
	if err := v.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("audio vault ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return v, nil
}

func (v *AudioVault) ensureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := v.client.BucketExists(ctx, v.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", v.bucket, err)
	}
	if exists {
		return nil
	}
	if err := v.client.MakeBucket(ctx, v.bucket, minio.MakeBucketOptions{Region: v.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", v.bucket, err)
	}
	logger.Info("bucket created", logger.String("bucket", v.bucket))
	return nil
}

// Offload stores the audio of a data URI and returns the media URL that
// replaces it. Any other URL is returned unchanged.
func (v *AudioVault) Offload(ctx context.Context, audioURL string) (string, error) {
	contentType, data, err := ParseDataURI(audioURL)
	if errors.Is(err, ErrNotDataURI) {
		return audioURL, nil
	}
	if err != nil {
		return "", err
	}

	objectName := audioFolder + uuid.NewString() + extensionFor(contentType)
	_, err = v.client.PutObject(ctx, v.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}

	logger.Debug("audio offloaded",
		logger.String("object", objectName),
		logger.Int("bytes", len(data)))
	return MediaPrefix + objectName, nil
}

// Discard removes an object previously returned by Offload. URLs outside
// the vault are ignored.
func (v *AudioVault) Discard(ctx context.Context, mediaURL string) error {
	objectName := strings.TrimPrefix(mediaURL, MediaPrefix)
	if objectName == mediaURL || !strings.HasPrefix(objectName, audioFolder) {
		return nil
	}
	if err := v.client.RemoveObject(ctx, v.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", objectName, err)
	}
	logger.Debug("audio discarded", logger.String("object", objectName))
	return nil
}

// Open returns a reader for a stored object plus its content type and size.
func (v *AudioVault) Open(ctx context.Context, objectName string) (io.ReadCloser, string, int64, error) {
	obj, err := v.client.GetObject(ctx, v.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", 0, err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", 0, err
	}
	return obj, info.ContentType, info.Size, nil
}

// List walks the audio folder.
func (v *AudioVault) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	for object := range v.client.ListObjects(ctx, v.bucket, minio.ListObjectsOptions{
		Prefix:    audioFolder + prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	return objects, stats, nil
}

// IsNotFound reports whether err is a missing-object response.
func IsNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// ParseDataURI decodes an RFC 2397 data URL.
func ParseDataURI(s string) (string, []byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing comma")
	}

	isBase64 := false
	if strings.HasSuffix(header, ";base64") {
		isBase64 = true
		header = strings.TrimSuffix(header, ";base64")
	}

	contentType := "text/plain"
	if header != "" {
		mediaType, params, err := mime.ParseMediaType(header)
		if err != nil {
			return "", nil, fmt.Errorf("malformed data URI media type: %w", err)
		}
		contentType = mime.FormatMediaType(mediaType, params)
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("malformed data URI payload: %w", err)
		}
		return contentType, data, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("malformed data URI payload: %w", err)
	}
	return contentType, []byte(text), nil
}

func extensionFor(contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	case "audio/aac":
		return ".aac"
	}
	return ".bin"
}

// FormatSize renders a byte count for the CLI.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
