package realtime

import (
	"context"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMembers 内存版持久成员关系
type fakeMembers struct {
	groups map[uint64][]uint64
}

func (f *fakeMembers) IsGroupMember(_ context.Context, groupID, userID uint64) (bool, error) {
	for _, id := range f.groups[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembers) GroupMemberIDs(_ context.Context, groupID uint64) ([]uint64, error) {
	return f.groups[groupID], nil
}

func groupEnv(sender, groupID, seq uint64) *MessageEvent {
	return &MessageEvent{
		SenderID: sender,
		GroupID:  groupID,
		MsgType:  1,
		Content:  fmt.Sprintf("msg-%d", seq),
		Seq:      seq,
	}
}

func TestRouteGroupRejectsNonMember(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{10: {1, 2}}})

	a := NewConn(nil, 1)
	hub.Register(a)
	hub.Reconcile(a, []uint64{10})
	drainEvents(t, a)

	// 身份 3 不是群 10 的持久成员
	out, err := router.RouteGroup(context.Background(), "", groupEnv(3, 10, 1))
	require.ErrorIs(t, err, ErrNotGroupMember)
	assert.Zero(t, out.Delivered)
	assert.Empty(t, drainEvents(t, a))
}

func TestRouteGroupDeliversToSubscribedConn(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{10: {1, 2}}})

	// A 携带持久群组列表 [10] 连接
	a := NewConn(nil, 1)
	hub.Register(a)
	hub.Reconcile(a, []uint64{10})
	drainEvents(t, a)

	_, err := router.RouteGroup(context.Background(), "", groupEnv(2, 10, 1))
	require.NoError(t, err)

	events := drainEvents(t, a)
	require.Equal(t, 1, countEvents(events, EventNewGroupMessage))
	require.Equal(t, 1, countEvents(events, EventGroupMessageNotification))

	var env MessageEvent
	require.NoError(t, json.Unmarshal(events[0].Data, &env))
	assert.Equal(t, uint64(10), env.GroupID)
	assert.Equal(t, uint64(2), env.SenderID)
}

func TestRouteGroupFIFOPerConversation(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{10: {1, 2}}})

	a := NewConn(nil, 1)
	b := NewConn(nil, 2)
	hub.Register(a)
	hub.Register(b)
	hub.Reconcile(a, []uint64{10})
	hub.Reconcile(b, []uint64{10})
	drainEvents(t, a)
	drainEvents(t, b)

	const n = 20
	for seq := uint64(1); seq <= n; seq++ {
		_, err := router.RouteGroup(context.Background(), "", groupEnv(2, 10, seq))
		require.NoError(t, err)
	}

	for _, c := range []*Conn{a, b} {
		var got []uint64
		for _, ev := range drainEvents(t, c) {
			if ev.Type != EventNewGroupMessage {
				continue
			}
			var env MessageEvent
			require.NoError(t, json.Unmarshal(ev.Data, &env))
			got = append(got, env.Seq)
		}
		require.Len(t, got, n)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1], got[i])
		}
	}
}

func TestRouteGroupExcludesOriginConn(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{10: {1, 2}}})

	// 发送者的两台设备都订阅了房间
	origin := NewConn(nil, 2)
	other := NewConn(nil, 2)
	hub.Register(origin)
	hub.Register(other)
	hub.Reconcile(origin, []uint64{10})
	hub.Reconcile(other, []uint64{10})
	drainEvents(t, origin)
	drainEvents(t, other)

	_, err := router.RouteGroup(context.Background(), origin.ID, groupEnv(2, 10, 1))
	require.NoError(t, err)

	assert.Empty(t, drainEvents(t, origin))
	events := drainEvents(t, other)
	assert.Equal(t, 1, countEvents(events, EventNewGroupMessage))
	assert.Equal(t, 1, countEvents(events, EventGroupMessageNotification))
}

func TestRouteGroupNotifiesUnsubscribedMember(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{10: {1, 2}}})

	// B 在线但没有订阅房间：只收未读信号，不收在场渲染事件
	b := NewConn(nil, 2)
	hub.Register(b)
	drainEvents(t, b)

	_, err := router.RouteGroup(context.Background(), "", groupEnv(1, 10, 1))
	require.NoError(t, err)

	events := drainEvents(t, b)
	assert.Equal(t, 0, countEvents(events, EventNewGroupMessage))
	assert.Equal(t, 1, countEvents(events, EventGroupMessageNotification))
}

func TestRouteDirectMultiDeviceFanout(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{}})

	// A 两台设备，B 两台设备，B 的 origin 设备发起
	a1 := NewConn(nil, 1)
	a2 := NewConn(nil, 1)
	bOrigin := NewConn(nil, 2)
	bOther := NewConn(nil, 2)
	for _, c := range []*Conn{a1, a2, bOrigin, bOther} {
		hub.Register(c)
	}
	for _, c := range []*Conn{a1, a2, bOrigin, bOther} {
		drainEvents(t, c)
	}

	env := &MessageEvent{SenderID: 2, RecipientID: 1, MsgType: 1, Content: "hi", Seq: 1}
	out, err := router.RouteDirect(context.Background(), bOrigin.ID, env)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Delivered)

	assert.Equal(t, 1, countEvents(drainEvents(t, a1), EventNewDirectMessage))
	assert.Equal(t, 1, countEvents(drainEvents(t, a2), EventNewDirectMessage))
	assert.Equal(t, 1, countEvents(drainEvents(t, bOther), EventNewDirectMessage))
	assert.Equal(t, 0, countEvents(drainEvents(t, bOrigin), EventNewDirectMessage))
}

func TestRouteDirectOfflineRecipientIsNotError(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{}})

	env := &MessageEvent{SenderID: 2, RecipientID: 1, MsgType: 1, Content: "hi", Seq: 1}
	out, err := router.RouteDirect(context.Background(), "", env)
	require.NoError(t, err)
	assert.Zero(t, out.Delivered)
}

func TestRouteDirectSelfMessageDeliveredOnce(t *testing.T) {
	hub := NewHub()
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{}})

	origin := NewConn(nil, 1)
	other := NewConn(nil, 1)
	hub.Register(origin)
	hub.Register(other)
	drainEvents(t, origin)
	drainEvents(t, other)

	env := &MessageEvent{SenderID: 1, RecipientID: 1, MsgType: 1, Content: "note", Seq: 1}
	_, err := router.RouteDirect(context.Background(), origin.ID, env)
	require.NoError(t, err)

	assert.Equal(t, 1, countEvents(drainEvents(t, other), EventNewDirectMessage))
	assert.Equal(t, 0, countEvents(drainEvents(t, origin), EventNewDirectMessage))
}
