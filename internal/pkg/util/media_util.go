package util

import (
	"bytes"
	"image"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/disintegration/imaging"
)

// GetSafeContentType 嗅探文件真实类型，不信任客户端上报的扩展名
// 读取后将游标拨回起点，调用方可继续完整读取
func GetSafeContentType(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// GetImageDimensions 仅解码图片头部获取宽高，不加载整幅像素
func GetImageDimensions(file multipart.File) (int, int, error) {
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// MakeThumbnail 等比缩放生成 JPEG 缩略图，长边不超过 maxEdge
// 调用方此前可能已把文件读到 EOF，解码前先回卷到起点
func MakeThumbnail(file multipart.File, maxEdge int) (*bytes.Buffer, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, err
	}
	return buf, nil
}
