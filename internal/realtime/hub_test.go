package realtime

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// drainEvents 取出连接缓冲中当前积压的全部事件
func drainEvents(t *testing.T, c *Conn) []rawEvent {
	t.Helper()
	var out []rawEvent
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				return out
			}
			var ev rawEvent
			require.NoError(t, json.Unmarshal(payload, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countEvents(events []rawEvent, typ string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestOnlineSetDerivedFromRegistry(t *testing.T) {
	hub := NewHub()

	a1 := NewConn(nil, 1)
	a2 := NewConn(nil, 1)
	b := NewConn(nil, 2)

	assert.Empty(t, hub.OnlineUserIDs())

	hub.Register(a1)
	assert.Equal(t, []uint64{1}, hub.OnlineUserIDs())

	hub.Register(a2)
	hub.Register(b)
	assert.Equal(t, []uint64{1, 2}, hub.OnlineUserIDs())

	hub.Unregister(a1)
	assert.Equal(t, []uint64{1, 2}, hub.OnlineUserIDs())

	hub.Unregister(a2)
	assert.Equal(t, []uint64{2}, hub.OnlineUserIDs())

	hub.Unregister(b)
	assert.Empty(t, hub.OnlineUserIDs())
}

func TestPresenceBroadcastEdgeTriggered(t *testing.T) {
	hub := NewHub()

	observer := NewConn(nil, 9)
	hub.Register(observer)
	drainEvents(t, observer)

	// 首个连接上线：恰好一次广播
	a1 := NewConn(nil, 1)
	hub.Register(a1)
	assert.Equal(t, 1, countEvents(drainEvents(t, observer), EventOnlineIdentities))

	// 同一身份的第二条连接：零次广播
	a2 := NewConn(nil, 1)
	hub.Register(a2)
	assert.Equal(t, 0, countEvents(drainEvents(t, observer), EventOnlineIdentities))

	// 还有一条连接在线，注销不触发广播
	hub.Unregister(a1)
	assert.Equal(t, 0, countEvents(drainEvents(t, observer), EventOnlineIdentities))

	// 最后一条连接注销：恰好一次广播
	hub.Unregister(a2)
	events := drainEvents(t, observer)
	require.Equal(t, 1, countEvents(events, EventOnlineIdentities))

	var ids []uint64
	require.NoError(t, json.Unmarshal(events[len(events)-1].Data, &ids))
	assert.Equal(t, []uint64{9}, ids)
}

func TestUnregisterUnknownConnIsNoop(t *testing.T) {
	hub := NewHub()

	a := NewConn(nil, 1)
	hub.Register(a)
	hub.Unregister(a)

	// 重复断开事件不炸、不重复广播
	assert.NotPanics(t, func() { hub.Unregister(a) })
	assert.Empty(t, hub.OnlineUserIDs())
}

func TestReconcileJoinsDurableRooms(t *testing.T) {
	hub := NewHub()

	a := NewConn(nil, 1)
	hub.Register(a)
	hub.Reconcile(a, []uint64{10, 20})

	assert.Len(t, hub.ConnectionsInRoom(10), 1)
	assert.Len(t, hub.ConnectionsInRoom(20), 1)
	assert.Empty(t, hub.ConnectionsInRoom(30))
}

func TestJoinRoomIdempotent(t *testing.T) {
	hub := NewHub()

	a := NewConn(nil, 1)
	hub.Register(a)
	hub.JoinRoom(a, 10)
	hub.JoinRoom(a, 10)

	assert.Len(t, hub.ConnectionsInRoom(10), 1)
}

func TestLeaveUntrackedRoomCounted(t *testing.T) {
	hub := NewHub()

	a := NewConn(nil, 1)
	hub.Register(a)

	hub.LeaveRoom(a, 99)
	assert.Equal(t, uint64(1), hub.Stats().UntrackedLeaves)

	hub.JoinRoom(a, 10)
	hub.LeaveRoom(a, 10)
	hub.LeaveRoom(a, 10)
	assert.Equal(t, uint64(2), hub.Stats().UntrackedLeaves)
	assert.Empty(t, hub.ConnectionsInRoom(10))
}

func TestUnregisterDetachesRooms(t *testing.T) {
	hub := NewHub()

	a := NewConn(nil, 1)
	hub.Register(a)
	hub.Reconcile(a, []uint64{10, 20})
	hub.Unregister(a)

	assert.Empty(t, hub.ConnectionsInRoom(10))
	assert.Empty(t, hub.ConnectionsInRoom(20))

	// 快速重连不残留旧订阅
	a2 := NewConn(nil, 1)
	hub.Register(a2)
	hub.Reconcile(a2, []uint64{10})
	assert.Len(t, hub.ConnectionsInRoom(10), 1)
	assert.Empty(t, hub.ConnectionsInRoom(20))
	assert.Equal(t, []uint64{1}, hub.OnlineUserIDs())
}
