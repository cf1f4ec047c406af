package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// OutboxStatus 本地已发送消息的确认状态
type OutboxStatus int8

const (
	StatusPending OutboxStatus = iota
	StatusConfirmed
	StatusFailed
)

// ErrBadTransition 非法的状态迁移（仅允许 Pending → Confirmed / Failed）
var ErrBadTransition = errors.New("消息状态迁移非法")

// OutboxEntry 一条客户端可见的待确认消息
type OutboxEntry struct {
	LocalID string
	Status  OutboxStatus
	Reason  string
	Message *MessageEvent
}

// Outbox 发送中消息的显式状态机，取代对共享集合的就地回滚
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*OutboxEntry
	order   []string
}

func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]*OutboxEntry)}
}

// Add 登记一条待确认消息，返回本地标识
func (o *Outbox) Add(env *MessageEvent) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	localID := uuid.NewString()
	o.entries[localID] = &OutboxEntry{
		LocalID: localID,
		Status:  StatusPending,
		Message: env,
	}
	o.order = append(o.order, localID)
	return localID
}

// Confirm 服务端落库成功，携带定序后的最终信封
func (o *Outbox) Confirm(localID string, confirmed *MessageEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.entries[localID]
	if !ok || entry.Status != StatusPending {
		return ErrBadTransition
	}
	entry.Status = StatusConfirmed
	entry.Message = confirmed
	return nil
}

// Fail 发送失败，记录原因
func (o *Outbox) Fail(localID string, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.entries[localID]
	if !ok || entry.Status != StatusPending {
		return ErrBadTransition
	}
	entry.Status = StatusFailed
	entry.Reason = reason
	return nil
}

// Get 返回指定条目的快照
func (o *Outbox) Get(localID string) (OutboxEntry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.entries[localID]
	if !ok {
		return OutboxEntry{}, false
	}
	return *entry, true
}

// Entries 按登记顺序返回全部条目的快照
func (o *Outbox) Entries() []OutboxEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]OutboxEntry, 0, len(o.order))
	for _, localID := range o.order {
		out = append(out, *o.entries[localID])
	}
	return out
}
