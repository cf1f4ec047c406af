package dto

// MediaTempMetadata 上传暂存索引中的媒体元数据
type MediaTempMetadata struct {
	MimeType  string `json:"mime_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt int64  `json:"created_at"`
}

// MediaUploadResultDTO 上传结果
type MediaUploadResultDTO struct {
	ObjectName string `json:"object_name"`
	URL        string `json:"url"`
	ThumbURL   string `json:"thumb_url,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}
