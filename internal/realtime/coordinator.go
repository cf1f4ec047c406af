package realtime

import (
	log "log/slog"
)

// Coordinator 群组生命周期协调器
// 把持久层的群组变更（建群、改名、解散、增减成员）翻译为房间
// 跟踪表更新与连接可见的通知；通知只发给当前在线的目标，
// 离线成员在下次拉取群组列表时自行发现变更
//
// 单个群组的状态机：不存在 → 活跃 → (更新)* → 已解散，解散后不可复活
type Coordinator struct {
	hub *Hub
}

func NewCoordinator(hub *Hub) *Coordinator {
	return &Coordinator{hub: hub}
}

// GroupCreated 建群：把每个初始成员的在线连接订阅进房间并通知
func (co *Coordinator) GroupCreated(g *GroupEvent) {
	payload, err := EncodeEvent(EventGroupCreated, g)
	if err != nil {
		log.Error("群组事件序列化失败", "groupID", g.GroupID, "err", err)
		return
	}

	co.hub.mu.Lock()
	defer co.hub.mu.Unlock()

	for _, userID := range g.MemberIDs {
		for c := range co.hub.conns[userID] {
			co.hub.joinRoomLocked(c, g.GroupID)
			co.hub.enqueueLocked(c, payload)
		}
	}
}

// GroupUpdated 群元数据变更：不动成员关系，仅广播给当前房间订阅者
func (co *Coordinator) GroupUpdated(g *GroupEvent) {
	payload, err := EncodeEvent(EventGroupUpdated, g)
	if err != nil {
		log.Error("群组事件序列化失败", "groupID", g.GroupID, "err", err)
		return
	}

	co.hub.mu.Lock()
	defer co.hub.mu.Unlock()

	for c := range co.hub.rooms[g.GroupID] {
		co.hub.enqueueLocked(c, payload)
	}
}

// MemberAdded 新成员入群：其在线连接订阅房间并收到入群通知，
// 既有订阅者收到一次群元数据更新
func (co *Coordinator) MemberAdded(g *GroupEvent, userID uint64) {
	joinPayload, err := EncodeEvent(EventGroupCreated, g)
	if err != nil {
		log.Error("群组事件序列化失败", "groupID", g.GroupID, "err", err)
		return
	}
	updatePayload, err := EncodeEvent(EventGroupUpdated, g)
	if err != nil {
		log.Error("群组事件序列化失败", "groupID", g.GroupID, "err", err)
		return
	}

	co.hub.mu.Lock()
	defer co.hub.mu.Unlock()

	for c := range co.hub.rooms[g.GroupID] {
		co.hub.enqueueLocked(c, updatePayload)
	}
	for c := range co.hub.conns[userID] {
		co.hub.joinRoomLocked(c, g.GroupID)
		co.hub.enqueueLocked(c, joinPayload)
	}
}

// MemberRemoved 移除成员：其在线连接退订房间并收到被移除通知，
// 后续群消息不会再投递到该身份的任何连接
func (co *Coordinator) MemberRemoved(g *GroupEvent, userID uint64) {
	removedPayload, err := EncodeEvent(EventRemovedFromGroup, &GroupEvent{GroupID: g.GroupID, Name: g.Name})
	if err != nil {
		log.Error("群组事件序列化失败", "groupID", g.GroupID, "err", err)
		return
	}
	updatePayload, err := EncodeEvent(EventGroupUpdated, g)
	if err != nil {
		log.Error("群组事件序列化失败", "groupID", g.GroupID, "err", err)
		return
	}

	co.hub.mu.Lock()
	defer co.hub.mu.Unlock()

	for c := range co.hub.conns[userID] {
		co.hub.detachRoomLocked(c, g.GroupID)
		co.hub.enqueueLocked(c, removedPayload)
	}
	for c := range co.hub.rooms[g.GroupID] {
		co.hub.enqueueLocked(c, updatePayload)
	}
}

// GroupDeleted 解散群：通知所有当前订阅者并清除房间条目
func (co *Coordinator) GroupDeleted(groupID uint64) {
	payload, err := EncodeEvent(EventGroupDeleted, &GroupEvent{GroupID: groupID})
	if err != nil {
		log.Error("群组事件序列化失败", "groupID", groupID, "err", err)
		return
	}

	co.hub.mu.Lock()
	defer co.hub.mu.Unlock()

	for _, c := range co.hub.purgeRoomLocked(groupID) {
		co.hub.enqueueLocked(c, payload)
	}
}
