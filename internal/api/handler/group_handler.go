package handler

import (
	"Banter/internal/api/dto"
	"Banter/internal/pkg/response"
	"Banter/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupSvc service.GroupService
}

func NewGroupHandler(groupSvc service.GroupService) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc}
}

// CreateGroup 建群接口
func (s *GroupHandler) CreateGroup(c *gin.Context) {
	var req dto.CreateGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	ownerID := c.GetUint64("user_id")
	res, err := s.groupSvc.CreateGroup(c.Request.Context(), ownerID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetGroup 群详情接口
func (s *GroupHandler) GetGroup(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	res, err := s.groupSvc.GetGroup(c.Request.Context(), userID, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ListGroups 当前用户的群列表
func (s *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetUint64("user_id")
	res, err := s.groupSvc.ListGroups(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UpdateGroup 群资料变更接口
func (s *GroupHandler) UpdateGroup(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.UpdateGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.groupSvc.UpdateGroup(c.Request.Context(), userID, groupID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// AddMembers 拉人入群接口
func (s *GroupHandler) AddMembers(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	var req dto.AddMembersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.groupSvc.AddMembers(c.Request.Context(), userID, groupID, req.MemberIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveMember 踢人接口
func (s *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	memberID, err := strconv.ParseUint(c.Param("memberId"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.groupSvc.RemoveMember(c.Request.Context(), userID, groupID, memberID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// LeaveGroup 主动退群接口
func (s *GroupHandler) LeaveGroup(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.groupSvc.LeaveGroup(c.Request.Context(), userID, groupID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteGroup 解散群接口
func (s *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.groupSvc.DeleteGroup(c.Request.Context(), userID, groupID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkGroupRead 群聊标记已读接口
func (s *GroupHandler) MarkGroupRead(c *gin.Context) {
	var req dto.MarkGroupReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	if err := s.groupSvc.MarkGroupRead(c.Request.Context(), userID, req.GroupID, req.Sequence); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
