package realtime

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCreatedJoinsLiveMembers(t *testing.T) {
	hub := NewHub()
	co := NewCoordinator(hub)

	a := NewConn(nil, 1)
	b := NewConn(nil, 2)
	hub.Register(a)
	hub.Register(b)
	drainEvents(t, a)
	drainEvents(t, b)

	// 成员 3 离线，不产生任何通知
	co.GroupCreated(&GroupEvent{GroupID: 10, Name: "team", MemberIDs: []uint64{1, 2, 3}})

	assert.Len(t, hub.ConnectionsInRoom(10), 2)
	assert.Equal(t, 1, countEvents(drainEvents(t, a), EventGroupCreated))
	assert.Equal(t, 1, countEvents(drainEvents(t, b), EventGroupCreated))
}

func TestMemberAddedJoinsAndNotifies(t *testing.T) {
	hub := NewHub()
	co := NewCoordinator(hub)

	a := NewConn(nil, 1)
	b := NewConn(nil, 2)
	hub.Register(a)
	hub.Register(b)
	co.GroupCreated(&GroupEvent{GroupID: 10, Name: "team", MemberIDs: []uint64{1}})
	drainEvents(t, a)
	drainEvents(t, b)

	co.MemberAdded(&GroupEvent{GroupID: 10, Name: "team", MemberIDs: []uint64{1, 2}}, 2)

	assert.Len(t, hub.ConnectionsInRoom(10), 2)
	assert.Equal(t, 1, countEvents(drainEvents(t, b), EventGroupCreated))
	assert.Equal(t, 1, countEvents(drainEvents(t, a), EventGroupUpdated))
}

func TestMemberRemovedStopsGroupDelivery(t *testing.T) {
	hub := NewHub()
	co := NewCoordinator(hub)
	members := &fakeMembers{groups: map[uint64][]uint64{10: {1, 2}}}
	router := NewRouter(hub, members)

	a := NewConn(nil, 1)
	b := NewConn(nil, 2)
	hub.Register(a)
	hub.Register(b)
	co.GroupCreated(&GroupEvent{GroupID: 10, Name: "team", MemberIDs: []uint64{1, 2}})
	drainEvents(t, a)
	drainEvents(t, b)

	// 移除 B 后发群消息：B 收到恰好一次 removedFromGroup，零条群消息
	members.groups[10] = []uint64{1}
	co.MemberRemoved(&GroupEvent{GroupID: 10, Name: "team", MemberIDs: []uint64{1}}, 2)

	_, err := router.RouteGroup(context.Background(), "", groupEnv(1, 10, 1))
	require.NoError(t, err)

	events := drainEvents(t, b)
	assert.Equal(t, 1, countEvents(events, EventRemovedFromGroup))
	assert.Equal(t, 0, countEvents(events, EventNewGroupMessage))
	assert.Equal(t, 0, countEvents(events, EventGroupMessageNotification))
}

func TestGroupUpdatedReachesOccupantsOnly(t *testing.T) {
	hub := NewHub()
	co := NewCoordinator(hub)

	a := NewConn(nil, 1)
	b := NewConn(nil, 2)
	hub.Register(a)
	hub.Register(b)
	hub.Reconcile(a, []uint64{10})
	drainEvents(t, a)
	drainEvents(t, b)

	co.GroupUpdated(&GroupEvent{GroupID: 10, Name: "renamed"})

	events := drainEvents(t, a)
	require.Equal(t, 1, countEvents(events, EventGroupUpdated))
	var g GroupEvent
	require.NoError(t, json.Unmarshal(events[0].Data, &g))
	assert.Equal(t, "renamed", g.Name)

	assert.Empty(t, drainEvents(t, b))
}

func TestGroupDeletedPurgesRoom(t *testing.T) {
	hub := NewHub()
	co := NewCoordinator(hub)
	router := NewRouter(hub, &fakeMembers{groups: map[uint64][]uint64{20: {1, 2}}})

	a := NewConn(nil, 1)
	b := NewConn(nil, 2)
	hub.Register(a)
	hub.Register(b)
	hub.Reconcile(a, []uint64{20})
	hub.Reconcile(b, []uint64{20})
	drainEvents(t, a)
	drainEvents(t, b)

	co.GroupDeleted(20)

	assert.Equal(t, 1, countEvents(drainEvents(t, a), EventGroupDeleted))
	assert.Equal(t, 1, countEvents(drainEvents(t, b), EventGroupDeleted))
	assert.Empty(t, hub.ConnectionsInRoom(20))

	// 房间已清除：即便持久层读到陈旧成员关系，也不再有在场投递
	_, err := router.RouteGroup(context.Background(), "", groupEnv(1, 20, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, countEvents(drainEvents(t, a), EventNewGroupMessage))
	assert.Equal(t, 0, countEvents(drainEvents(t, b), EventNewGroupMessage))
}
