package handler

import (
	"Banter/internal/api/dto"
	"Banter/internal/pkg/consts"
	"Banter/internal/pkg/minio"
	"Banter/internal/pkg/redis"
	"Banter/internal/pkg/response"
	"Banter/internal/pkg/util"
	"Banter/internal/service"
	"bytes"
	log "log/slog"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const thumbnailMaxEdge = 320

type MediaHandler struct{}

func NewMediaHandler() *MediaHandler {
	return &MediaHandler{}
}

// Upload 消息附件上传
// 上传后进入暂存索引，消息引用前未被消费的对象由清理任务回收
func (s *MediaHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() { _ = reader.Close() }()

	contentType, err := util.GetSafeContentType(reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !strings.HasPrefix(contentType, consts.MimePrefixImage) {
		response.Error(c, service.ErrFileNotSupported)
		return
	}

	width, height, err := util.GetImageDimensions(reader)
	if err != nil {
		log.WarnContext(c, "failed to decode image dimensions", "file", file.Filename, "err", err)
	}

	ext := path.Ext(file.Filename)
	objectName := time.Now().Format("2006/01/02/") + uuid.NewString() + ext

	fileKey, err := minio.UploadFile(c.Request.Context(), objectName, reader, file.Size, contentType)
	if err != nil {
		log.ErrorContext(c, "MinIO upload failed", "err", err)
		response.Error(c, service.UnExpectedError)
		return
	}

	// 生成缩略图，失败不阻断主流程
	var thumbURL string
	if thumb, err := util.MakeThumbnail(reader, thumbnailMaxEdge); err == nil {
		thumbName := strings.TrimSuffix(objectName, ext) + "_thumb.jpg"
		thumbKey, err := minio.UploadFile(c.Request.Context(), thumbName,
			bytes.NewReader(thumb.Bytes()), int64(thumb.Len()), "image/jpeg")
		if err == nil {
			thumbURL = minio.GetPublicURL(thumbKey)
		} else {
			log.WarnContext(c, "thumbnail upload failed", "err", err)
		}
	} else {
		log.WarnContext(c, "thumbnail generation failed", "err", err)
	}

	meta := dto.MediaTempMetadata{
		MimeType:  contentType,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now().Unix(),
	}
	metaBytes, _ := json.Marshal(meta)
	_ = redis.HSet(c.Request.Context(), consts.MediaTempKey, fileKey, string(metaBytes))

	log.InfoContext(c, "media upload success and metadata cached", "fileKey", fileKey, "type", contentType)
	response.Success(c, &dto.MediaUploadResultDTO{
		ObjectName: fileKey,
		URL:        minio.GetPublicURL(fileKey),
		ThumbURL:   thumbURL,
		Width:      width,
		Height:     height,
	})
}
