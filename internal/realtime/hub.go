package realtime

import (
	log "log/slog"
	"sort"
	"sync"
)

// Stats 核心状态自检计数，用于观测不变量被打破的次数
type Stats struct {
	// LeaveRoom 作用于未跟踪的房间/连接的次数
	UntrackedLeaves uint64
	// 发送缓冲写满导致的丢弃次数
	DeliveryDrops uint64
}

// Hub 在线状态与房间订阅的唯一可变共享结构
// 连接注册表（identity -> 连接集合）与房间跟踪表（group -> 连接集合）
// 由同一把互斥锁串行化，任何广播快照都在临界区内计算，杜绝半更新视图
type Hub struct {
	mu    sync.Mutex
	conns map[uint64]map[*Conn]struct{}
	rooms map[uint64]map[*Conn]struct{}
	stats Stats
}

// NewHub 构造一个独立的在线状态服务实例
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uint64]map[*Conn]struct{}),
		rooms: make(map[uint64]map[*Conn]struct{}),
	}
}

// Register 追加一条连接（同一身份允许多端在线）
// 仅在身份从离线变为在线的边沿触发全量在线集广播
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[c.UserID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[c.UserID] = set
	}
	wasOnline := len(set) > 0
	set[c] = struct{}{}

	if !wasOnline {
		h.broadcastOnlineSetLocked()
	}
}

// Unregister 移除一条连接并退订其加入的全部房间
// 对未注册的连接是幂等空操作（容忍重复断开事件）
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[c.UserID]
	if !ok {
		return
	}
	if _, ok = set[c]; !ok {
		return
	}
	delete(set, c)

	// 重连竞态防护：连接销毁时顺带清空房间订阅
	for groupID := range c.rooms {
		h.detachRoomLocked(c, groupID)
	}

	c.closed = true
	close(c.send)

	if len(set) == 0 {
		delete(h.conns, c.UserID)
		h.broadcastOnlineSetLocked()
	}
}

// JoinRoom 将连接订阅到群组房间，幂等
func (h *Hub) JoinRoom(c *Conn, groupID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinRoomLocked(c, groupID)
}

// LeaveRoom 退订房间，幂等；作用于未跟踪的房间按自检计数处理
func (h *Hub) LeaveRoom(c *Conn, groupID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c, groupID)
}

// Reconcile 连接建立时以持久层群组成员关系为准，批量订阅房间
// 与握手期间的事件顺序无关，结果确定
func (h *Hub) Reconcile(c *Conn, groupIDs []uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, groupID := range groupIDs {
		h.joinRoomLocked(c, groupID)
	}
}

// ConnectionsFor 返回某身份当前全部连接的快照
func (h *Hub) ConnectionsFor(userID uint64) []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.conns[userID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// ConnectionsInRoom 返回某房间当前订阅连接的快照
func (h *Hub) ConnectionsInRoom(groupID uint64) []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.rooms[groupID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// OnlineUserIDs 在线身份集合：始终从注册表推导，不单独维护计数
func (h *Hub) OnlineUserIDs() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onlineUserIDsLocked()
}

// Stats 返回自检计数快照
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Hub) joinRoomLocked(c *Conn, groupID uint64) {
	if c.closed {
		return
	}
	set, ok := h.rooms[groupID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.rooms[groupID] = set
	}
	set[c] = struct{}{}
	c.rooms[groupID] = struct{}{}
}

func (h *Hub) leaveRoomLocked(c *Conn, groupID uint64) {
	set, ok := h.rooms[groupID]
	if !ok {
		h.stats.UntrackedLeaves++
		log.Debug("退订未跟踪的房间", "userID", c.UserID, "groupID", groupID)
		return
	}
	if _, ok = set[c]; !ok {
		h.stats.UntrackedLeaves++
		log.Debug("退订未订阅的连接", "userID", c.UserID, "groupID", groupID)
		return
	}
	h.detachRoomLocked(c, groupID)
}

func (h *Hub) detachRoomLocked(c *Conn, groupID uint64) {
	if set, ok := h.rooms[groupID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, groupID)
		}
	}
	delete(c.rooms, groupID)
}

// purgeRoomLocked 删除房间条目并返回原订阅连接
func (h *Hub) purgeRoomLocked(groupID uint64) []*Conn {
	set := h.rooms[groupID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		delete(c.rooms, groupID)
		out = append(out, c)
	}
	delete(h.rooms, groupID)
	return out
}

func (h *Hub) onlineUserIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(h.conns))
	for userID, set := range h.conns {
		if len(set) > 0 {
			ids = append(ids, userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// broadcastOnlineSetLocked 全量在线集广播：幂等且可自愈，丢一帧不影响收敛
func (h *Hub) broadcastOnlineSetLocked() {
	payload, err := EncodeEvent(EventOnlineIdentities, h.onlineUserIDsLocked())
	if err != nil {
		log.Error("在线集事件序列化失败", "err", err)
		return
	}
	for _, set := range h.conns {
		for c := range set {
			h.enqueueLocked(c, payload)
		}
	}
}

// enqueueLocked 单连接非阻塞投递，慢连接只影响自己
func (h *Hub) enqueueLocked(c *Conn, payload []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		h.stats.DeliveryDrops++
		log.Warn("连接发送缓冲已满，丢弃事件", "userID", c.UserID, "connID", c.ID)
		return false
	}
}

// Send 向指定连接投递一条已编码事件
func (h *Hub) Send(c *Conn, payload []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enqueueLocked(c, payload)
}
