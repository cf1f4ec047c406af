package mongo

import (
	"time"
)

// MMap 消息附件的结构化载荷
type MMap map[string]interface{}

// Message MongoDB 消息明细模型
// 单聊消息携带 ConversationID，群聊消息携带 GroupID，二者互斥
type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	ConversationID uint64    `bson:"conversation_id,omitempty" json:"conversationId,omitempty"`
	GroupID        uint64    `bson:"group_id,omitempty" json:"groupId,omitempty"`
	SenderID       uint64    `bson:"sender_id" json:"senderId"`
	MsgType        int       `bson:"msg_type" json:"msgType"` // 1-文本, 2-图片
	Content        string    `bson:"content" json:"content"`
	Payload        MMap      `bson:"payload,omitempty" json:"payload,omitempty"` // 图片 URL、宽高、缩略图等
	Seq            uint64    `bson:"seq" json:"seq"`                             // 会话内唯一绝对序号 (来自 MySQL 定序)
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}
