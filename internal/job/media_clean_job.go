package job

import (
	"Banter/internal/api/dto"
	"Banter/internal/pkg/consts"
	"Banter/internal/pkg/minio"
	"Banter/internal/pkg/redis"
	"context"
	log "log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// MediaCleanupJob 回收上传后始终未被消息引用的媒体对象
type MediaCleanupJob struct{}

func NewMediaCleanupJob() *MediaCleanupJob {
	return &MediaCleanupJob{}
}

func (s *MediaCleanupJob) Run() {
	ctx := context.Background()
	log.Info("start media cleanup job")

	allMedia, err := redis.HGetAll(ctx, consts.MediaTempKey)
	if err != nil {
		log.Error("failed to get media temp hash", "err", err)
		return
	}

	now := time.Now().Unix()
	expiration := int64(24 * 60 * 60)
	count := 0

	for fileKey, val := range allMedia {
		var meta dto.MediaTempMetadata
		if err := json.Unmarshal([]byte(val), &meta); err != nil {
			log.Warn("invalid media meta format", "fileKey", fileKey)
			continue
		}

		if now-meta.CreatedAt > expiration {
			if err = minio.DeleteFile(ctx, fileKey); err != nil {
				log.Error("failed to delete expired file from minio", "fileKey", fileKey, "err", err)
				continue
			}

			// 缩略图与主图同生命周期
			ext := ""
			if idx := strings.LastIndex(fileKey, "."); idx > 0 {
				ext = fileKey[idx:]
			}
			thumbKey := strings.TrimSuffix(fileKey, ext) + "_thumb.jpg"
			_ = minio.DeleteFile(ctx, thumbKey)

			if err = redis.HDel(ctx, consts.MediaTempKey, fileKey); err != nil {
				log.Error("failed to remove media token from redis", "fileKey", fileKey, "err", err)
			}

			count++
			log.Info("cleanup expired media resource", "fileKey", fileKey, "mime", meta.MimeType)
		}
	}

	if count > 0 {
		log.Info("media cleanup job finished", "cleaned_count", count)
	}
}
