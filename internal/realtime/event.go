package realtime

import (
	"time"

	"github.com/goccy/go-json"
)

// 服务端推送事件类型
const (
	EventConnected                = "connected"
	EventOnlineIdentities         = "onlineIdentities"
	EventNewDirectMessage         = "newDirectMessage"
	EventNewGroupMessage          = "newGroupMessage"
	EventGroupMessageNotification = "groupMessageNotification"
	EventGroupCreated             = "groupCreated"
	EventGroupUpdated             = "groupUpdated"
	EventGroupDeleted             = "groupDeleted"
	EventRemovedFromGroup         = "removedFromGroup"
)

// 客户端上行事件类型
const (
	InboundJoinGroup  = "joinGroup"
	InboundLeaveGroup = "leaveGroup"
)

// Event 统一的 WS 下行事件封包
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// InboundEvent 客户端上行事件封包
type InboundEvent struct {
	Type    string `json:"type"`
	GroupID uint64 `json:"group_id,omitempty"`
}

// MessageEvent 消息信封：服务端定序落库后用于扇出的瞬态载荷
// GroupID 为 0 表示单聊，RecipientID 为 0 表示群聊
type MessageEvent struct {
	ID          string                 `json:"id,omitempty"`
	SenderID    uint64                 `json:"sender_id"`
	RecipientID uint64                 `json:"recipient_id,omitempty"`
	GroupID     uint64                 `json:"group_id,omitempty"`
	MsgType     int                    `json:"msg_type"`
	Content     string                 `json:"content"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Seq         uint64                 `json:"seq"`
	CreatedAt   time.Time              `json:"created_at"`
}

// GroupEvent 群组生命周期事件载荷
type GroupEvent struct {
	GroupID   uint64   `json:"group_id"`
	Name      string   `json:"name,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	OwnerID   uint64   `json:"owner_id,omitempty"`
	MemberIDs []uint64 `json:"member_ids,omitempty"`
}

// ConnectedEvent 握手成功后下发，客户端发消息时带上 ConnID 以便路由排除原始连接
type ConnectedEvent struct {
	ConnID string `json:"conn_id"`
	UserID uint64 `json:"user_id"`
}

// EncodeEvent 序列化下行事件
func EncodeEvent(typ string, data interface{}) ([]byte, error) {
	return json.Marshal(&Event{Type: typ, Data: data})
}

// DecodeInbound 解析上行事件
func DecodeInbound(raw []byte) (*InboundEvent, error) {
	var ev InboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
