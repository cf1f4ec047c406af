package realtime

import (
	"sync"
)

// TargetKind 会话目标类型
type TargetKind int8

const (
	TargetPeer  TargetKind = 1
	TargetGroup TargetKind = 2
)

// Target 会话目标：单聊对端或群组
type Target struct {
	Kind TargetKind
	ID   uint64
}

// UnreadTracker 客户端会话内的未读计数状态
//
// 约定：每收到一条非自己发出、且不属于当前选中会话的消息，对应目标
// 计数恰好 +1；目标被选中或显式清除时恰好归零，绝不做部分递减。
// 群聊以 groupMessageNotification 作为唯一计数信号，newGroupMessage
// 只用于在场渲染。计数为会话级状态，新加载时由服务端会话列表播种。
type UnreadTracker struct {
	mu       sync.Mutex
	selfID   uint64
	selected Target
	counts   map[Target]uint64
}

func NewUnreadTracker(selfID uint64) *UnreadTracker {
	return &UnreadTracker{
		selfID: selfID,
		counts: make(map[Target]uint64),
	}
}

// Seed 用服务端报告的会话状态初始化计数
func (t *UnreadTracker) Seed(counts map[Target]uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for target, n := range counts {
		t.counts[target] = n
	}
}

// Observe 处理一条投递事件，返回是否发生计数
func (t *UnreadTracker) Observe(env *MessageEvent) bool {
	if env.SenderID == t.selfID {
		return false
	}

	target := targetOf(env)

	t.mu.Lock()
	defer t.mu.Unlock()

	if target == t.selected {
		return false
	}
	t.counts[target]++
	return true
}

// Select 切换选中会话并清零其计数
func (t *UnreadTracker) Select(target Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = target
	t.counts[target] = 0
}

// Deselect 取消选中（例如关闭会话面板）
func (t *UnreadTracker) Deselect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = Target{}
}

// Clear 显式清零指定目标的计数
func (t *UnreadTracker) Clear(target Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[target] = 0
}

// Count 返回指定目标的当前计数
func (t *UnreadTracker) Count(target Target) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[target]
}

// Counts 返回全部计数的快照
func (t *UnreadTracker) Counts() map[Target]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Target]uint64, len(t.counts))
	for target, n := range t.counts {
		out[target] = n
	}
	return out
}

func targetOf(env *MessageEvent) Target {
	if env.GroupID != 0 {
		return Target{Kind: TargetGroup, ID: env.GroupID}
	}
	return Target{Kind: TargetPeer, ID: env.SenderID}
}
