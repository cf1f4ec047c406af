package realtime

import (
	"context"
	"errors"
	log "log/slog"
)

var (
	// ErrNotGroupMember 发送者不是目标群组的持久成员
	ErrNotGroupMember = errors.New("发送者不是群组成员")
)

// MembershipSource 持久层群组成员关系的只读视图，由仓储层实现
type MembershipSource interface {
	IsGroupMember(ctx context.Context, groupID, userID uint64) (bool, error)
	GroupMemberIDs(ctx context.Context, groupID uint64) ([]uint64, error)
}

// Outcome 单次路由的投递结果
// 目标全部离线时 Delivered 为 0，属正常情况而非错误
type Outcome struct {
	Delivered int
	Dropped   int
}

// Router 消息路由器：把已落库的消息信封解析为目标连接集合并扇出
// 投递是尽力而为的，单连接失败被隔离，不向发送方传播
//
// 顺序约定：入队在 hub 锁内完成，同一发送方的消息保持 FIFO；
// 定序（数据库行锁）与扇出（hub 锁）是两段临界区，并发发送方之间
// 到达顺序可能与 Seq 交错，客户端按信封内 Seq 排序展示
type Router struct {
	hub     *Hub
	members MembershipSource
}

func NewRouter(hub *Hub, members MembershipSource) *Router {
	return &Router{hub: hub, members: members}
}

// RouteDirect 单聊扇出：接收方全部连接 + 发送方除原始连接外的其他设备
// 原始连接的投递由 HTTP 响应承担，这里绝不重复投递
func (r *Router) RouteDirect(ctx context.Context, originConnID string, env *MessageEvent) (Outcome, error) {
	payload, err := EncodeEvent(EventNewDirectMessage, env)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	for c := range r.hub.conns[env.RecipientID] {
		if c.ID == originConnID {
			continue
		}
		r.deliverLocked(c, payload, &out)
	}
	if env.SenderID != env.RecipientID {
		for c := range r.hub.conns[env.SenderID] {
			if c.ID == originConnID {
				continue
			}
			r.deliverLocked(c, payload, &out)
		}
	}
	return out, nil
}

// RouteGroup 群聊扇出：先校验持久成员关系，未通过则整体拒绝，零投递
// 房间订阅者收到 newGroupMessage（在场渲染），全部持久成员的在线连接
// 收到 groupMessageNotification（未读计数的唯一信号源），均排除原始连接
func (r *Router) RouteGroup(ctx context.Context, originConnID string, env *MessageEvent) (Outcome, error) {
	ok, err := r.members.IsGroupMember(ctx, env.GroupID, env.SenderID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, ErrNotGroupMember
	}

	memberIDs, err := r.members.GroupMemberIDs(ctx, env.GroupID)
	if err != nil {
		return Outcome{}, err
	}

	roomPayload, err := EncodeEvent(EventNewGroupMessage, env)
	if err != nil {
		return Outcome{}, err
	}
	notifPayload, err := EncodeEvent(EventGroupMessageNotification, env)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	for c := range r.hub.rooms[env.GroupID] {
		if c.ID == originConnID {
			continue
		}
		r.deliverLocked(c, roomPayload, &out)
	}

	for _, userID := range memberIDs {
		for c := range r.hub.conns[userID] {
			if c.ID == originConnID {
				continue
			}
			r.deliverLocked(c, notifPayload, &out)
		}
	}
	return out, nil
}

func (r *Router) deliverLocked(c *Conn, payload []byte, out *Outcome) {
	if r.hub.enqueueLocked(c, payload) {
		out.Delivered++
	} else {
		out.Dropped++
		log.Warn("消息投递失败，等待客户端重连后拉取历史补齐", "userID", c.UserID, "connID", c.ID)
	}
}
