package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxConfirmFlow(t *testing.T) {
	outbox := NewOutbox()

	localID := outbox.Add(&MessageEvent{SenderID: 1, RecipientID: 2, Content: "hi"})
	entry, ok := outbox.Get(localID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, entry.Status)

	confirmed := &MessageEvent{ID: "srv-1", SenderID: 1, RecipientID: 2, Content: "hi", Seq: 7}
	require.NoError(t, outbox.Confirm(localID, confirmed))

	entry, _ = outbox.Get(localID)
	assert.Equal(t, StatusConfirmed, entry.Status)
	assert.Equal(t, uint64(7), entry.Message.Seq)
}

func TestOutboxFailKeepsReason(t *testing.T) {
	outbox := NewOutbox()

	localID := outbox.Add(&MessageEvent{SenderID: 1, GroupID: 10, Content: "hi"})
	require.NoError(t, outbox.Fail(localID, "持久化超时"))

	entry, _ := outbox.Get(localID)
	assert.Equal(t, StatusFailed, entry.Status)
	assert.Equal(t, "持久化超时", entry.Reason)
}

func TestOutboxRejectsBadTransitions(t *testing.T) {
	outbox := NewOutbox()

	localID := outbox.Add(&MessageEvent{SenderID: 1, RecipientID: 2})
	require.NoError(t, outbox.Confirm(localID, &MessageEvent{Seq: 1}))

	// 终态不可再迁移
	assert.ErrorIs(t, outbox.Confirm(localID, &MessageEvent{Seq: 2}), ErrBadTransition)
	assert.ErrorIs(t, outbox.Fail(localID, "late"), ErrBadTransition)

	// 未登记的条目
	assert.ErrorIs(t, outbox.Confirm("missing", nil), ErrBadTransition)
}

func TestOutboxEntriesKeepOrder(t *testing.T) {
	outbox := NewOutbox()

	first := outbox.Add(&MessageEvent{Content: "1"})
	second := outbox.Add(&MessageEvent{Content: "2"})

	entries := outbox.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0].LocalID)
	assert.Equal(t, second, entries[1].LocalID)
}
