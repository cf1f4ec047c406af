package handler

import (
	"Banter/internal/api/dto"
	"Banter/internal/pkg/response"
	"Banter/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	msgSvc service.MessageService
}

func NewMessageHandler(msgSvc service.MessageService) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc}
}

// SendDirectMessage 发送单聊消息接口
func (s *MessageHandler) SendDirectMessage(c *gin.Context) {
	var req dto.SendDirectMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	senderID := c.GetUint64("user_id")
	res, err := s.msgSvc.SendDirectMessage(c.Request.Context(), senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendGroupMessage 发送群聊消息接口
func (s *MessageHandler) SendGroupMessage(c *gin.Context) {
	var req dto.SendGroupMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	senderID := c.GetUint64("user_id")
	res, err := s.msgSvc.SendGroupMessage(c.Request.Context(), senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetConversationHistory 单聊历史消息
func (s *MessageHandler) GetConversationHistory(c *gin.Context) {
	convID, _ := strconv.ParseUint(c.Query("conversationId"), 10, 64)
	lastSeq, _ := strconv.ParseUint(c.Query("lastSeq"), 10, 64)
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	userID := c.GetUint64("user_id")
	res, err := s.msgSvc.GetConversationHistory(c.Request.Context(), userID, convID, lastSeq, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetGroupHistory 群聊历史消息
func (s *MessageHandler) GetGroupHistory(c *gin.Context) {
	groupID, _ := strconv.ParseUint(c.Query("groupId"), 10, 64)
	lastSeq, _ := strconv.ParseUint(c.Query("lastSeq"), 10, 64)
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	userID := c.GetUint64("user_id")
	res, err := s.msgSvc.GetGroupHistory(c.Request.Context(), userID, groupID, lastSeq, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetConversationList 单聊会话列表
func (s *MessageHandler) GetConversationList(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.msgSvc.GetConversationList(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkConversationRead 单聊标记已读接口
func (s *MessageHandler) MarkConversationRead(c *gin.Context) {
	var req dto.MarkConversationReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.msgSvc.MarkConversationRead(c.Request.Context(), userID, req.ConversationID, req.Sequence); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
