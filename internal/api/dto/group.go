package dto

import "time"

// CreateGroupReq 建群请求体
type CreateGroupReq struct {
	Name      string   `json:"name" binding:"required" validate:"min=1,max=64"`
	AvatarURL string   `json:"avatar_url"`
	MemberIDs []uint64 `json:"member_ids"`
}

// UpdateGroupReq 群资料变更请求体
type UpdateGroupReq struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=64"`
	AvatarURL *string `json:"avatar_url"`
}

// AddMembersReq 拉人入群请求体
type AddMembersReq struct {
	MemberIDs []uint64 `json:"member_ids" binding:"required"`
}

// GroupDTO 群组响应
type GroupDTO struct {
	GroupID        uint64    `json:"group_id"`
	Name           string    `json:"name"`
	AvatarURL      string    `json:"avatar_url"`
	OwnerID        uint64    `json:"owner_id"`
	MemberIDs      []uint64  `json:"member_ids,omitempty"`
	LastMsgContent string    `json:"last_msg_content,omitempty"`
	LastMsgType    int8      `json:"last_msg_type,omitempty"`
	LastSenderID   uint64    `json:"last_sender_id,omitempty"`
	LastMessageAt  time.Time `json:"lastMessageAt"`
	UnreadCount    uint64    `json:"unreadCount"`
}
