package handler

import (
	"Banter/internal/api/dto"
	"Banter/internal/pkg/consts"
	"Banter/internal/pkg/minio"
	"Banter/internal/pkg/response"
	"Banter/internal/pkg/util"
	"Banter/internal/service"
	log "log/slog"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	userSvc service.UserService
}

func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Register 注册接口，成功后直接签发令牌
func (s *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.userSvc.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Login 登录接口
func (s *UserHandler) Login(c *gin.Context) {
	var req dto.CredentialDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.userSvc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Logout 登出接口，令牌签名进入黑名单
func (s *UserHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	if err := s.userSvc.Logout(c.Request.Context(), tokenString); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetMe 获取当前登录用户信息
func (s *UserHandler) GetMe(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.userSvc.GetUserInfo(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ListUsers 侧边栏联系人列表
func (s *UserHandler) ListUsers(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.userSvc.ListUsers(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UploadAvatar 更换头像
func (s *UserHandler) UploadAvatar(c *gin.Context) {
	userID := c.GetUint64("user_id")
	file, err := c.FormFile("file")
	if err != nil || file == nil {
		response.Fail(c, response.BadRequest, service.ErrParamInvalid.Error())
		return
	}

	reader, err := file.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() {
		_ = reader.Close()
	}()

	contentType, err := util.GetSafeContentType(reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !strings.HasPrefix(contentType, consts.MimePrefixImage) {
		response.Error(c, service.ErrFileNotSupported)
		return
	}

	ext := path.Ext(file.Filename)
	objectName := "avatars/" + uuid.NewString() + ext
	fileKey, err := minio.UploadFile(c.Request.Context(), objectName, reader, file.Size, contentType)
	if err != nil {
		log.ErrorContext(c, "MinIO upload failed", "err", err)
		response.Error(c, service.UnExpectedError)
		return
	}

	if err = s.userSvc.UpdateAvatar(c.Request.Context(), userID, fileKey); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"avatar_url": minio.GetPublicURL(fileKey)})
}
