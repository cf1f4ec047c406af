package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnreadIncrementsPerDeliveredMessage(t *testing.T) {
	tracker := NewUnreadTracker(1)
	target := Target{Kind: TargetGroup, ID: 10}

	assert.True(t, tracker.Observe(groupEnv(2, 10, 1)))
	assert.True(t, tracker.Observe(groupEnv(3, 10, 2)))
	assert.Equal(t, uint64(2), tracker.Count(target))
}

func TestUnreadSkipsSelfAuthored(t *testing.T) {
	tracker := NewUnreadTracker(1)

	assert.False(t, tracker.Observe(groupEnv(1, 10, 1)))
	assert.Zero(t, tracker.Count(Target{Kind: TargetGroup, ID: 10}))
}

func TestUnreadSilencedForSelectedConversation(t *testing.T) {
	tracker := NewUnreadTracker(1)
	target := Target{Kind: TargetGroup, ID: 10}

	tracker.Select(target)
	assert.False(t, tracker.Observe(groupEnv(2, 10, 1)))
	assert.Zero(t, tracker.Count(target))

	// 其他会话不受选中状态影响
	other := Target{Kind: TargetGroup, ID: 20}
	assert.True(t, tracker.Observe(groupEnv(2, 20, 1)))
	assert.Equal(t, uint64(1), tracker.Count(other))
}

func TestUnreadResetOnSelect(t *testing.T) {
	tracker := NewUnreadTracker(1)
	target := Target{Kind: TargetPeer, ID: 2}

	tracker.Observe(&MessageEvent{SenderID: 2, RecipientID: 1, Seq: 1})
	tracker.Observe(&MessageEvent{SenderID: 2, RecipientID: 1, Seq: 2})
	assert.Equal(t, uint64(2), tracker.Count(target))

	tracker.Select(target)
	assert.Zero(t, tracker.Count(target))

	// 取消选中后恢复计数
	tracker.Deselect()
	tracker.Observe(&MessageEvent{SenderID: 2, RecipientID: 1, Seq: 3})
	assert.Equal(t, uint64(1), tracker.Count(target))
}

func TestUnreadSeededFromServerState(t *testing.T) {
	tracker := NewUnreadTracker(1)
	tracker.Seed(map[Target]uint64{
		{Kind: TargetGroup, ID: 10}: 5,
		{Kind: TargetPeer, ID: 2}:   3,
	})

	tracker.Observe(groupEnv(2, 10, 6))
	assert.Equal(t, uint64(6), tracker.Count(Target{Kind: TargetGroup, ID: 10}))

	tracker.Clear(Target{Kind: TargetPeer, ID: 2})
	assert.Zero(t, tracker.Count(Target{Kind: TargetPeer, ID: 2}))
}
