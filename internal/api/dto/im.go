package dto

import "time"

// SendDirectMessageReq 单聊消息请求体
// OriginConnID 为发送端 WS 连接握手时下发的连接 ID，路由时排除该连接
type SendDirectMessageReq struct {
	TargetUserID uint64                 `json:"target_user_id" binding:"required"`
	MsgType      int                    `json:"msg_type" binding:"required"` // 1-文本, 2-图片
	Content      string                 `json:"content" binding:"required"`
	Payload      map[string]interface{} `json:"payload"`
	OriginConnID string                 `json:"origin_conn_id"`
}

// SendGroupMessageReq 群聊消息请求体
type SendGroupMessageReq struct {
	GroupID      uint64                 `json:"group_id" binding:"required"`
	MsgType      int                    `json:"msg_type" binding:"required"`
	Content      string                 `json:"content" binding:"required"`
	Payload      map[string]interface{} `json:"payload"`
	OriginConnID string                 `json:"origin_conn_id"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             string                 `json:"id,omitempty"`
	ConversationID uint64                 `json:"conversation_id,omitempty"`
	GroupID        uint64                 `json:"group_id,omitempty"`
	SenderID       uint64                 `json:"sender_id"`
	MsgType        int                    `json:"msg_type"`
	Content        string                 `json:"content"`
	Payload        map[string]interface{} `json:"payload"`
	Seq            uint64                 `json:"seq"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// ConversationDTO 单聊会话列表项响应
type ConversationDTO struct {
	ConversationID uint64    `json:"conversation_id"`
	PeerID         uint64    `json:"peer_id"` // 对手方ID
	LastMsgContent string    `json:"last_msg_content"`
	LastMsgType    int8      `json:"last_msg_type"`
	LastSenderID   uint64    `json:"last_sender_id"`
	LastMessageAt  time.Time `json:"lastMessageAt"`
	UnreadCount    uint64    `json:"unreadCount"`
}

// MarkConversationReadReq 单聊标记已读请求
type MarkConversationReadReq struct {
	ConversationID uint64 `json:"conversation_id" binding:"required"`
	Sequence       uint64 `json:"sequence" binding:"required"` // 客户端当前看到的最后一条消息序号
}

// MarkGroupReadReq 群聊标记已读请求
type MarkGroupReadReq struct {
	GroupID  uint64 `json:"group_id" binding:"required"`
	Sequence uint64 `json:"sequence" binding:"required"`
}
