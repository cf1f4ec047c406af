package service

import (
	"Banter/internal/api/dto"
	"Banter/internal/model"
	"Banter/internal/pkg/consts"
	"Banter/internal/repository"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGroupRepo 内存群组仓储，只实现发送路径用到的方法
type fakeGroupRepo struct {
	repository.GroupRepo
	groups  map[uint64]*model.Group
	members map[uint64]map[uint64]bool
}

func (f *fakeGroupRepo) GetGroup(_ context.Context, groupID uint64) (*model.Group, error) {
	g, ok := f.groups[groupID]
	if !ok {
		return &model.Group{}, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (f *fakeGroupRepo) IsGroupMember(_ context.Context, groupID, userID uint64) (bool, error) {
	return f.members[groupID][userID], nil
}

func newTestMessageService(t *testing.T, groupRepo repository.GroupRepo) MessageService {
	t.Helper()
	svc := NewMessageService(nil, groupRepo, nil, nil, nil, nil)
	t.Cleanup(svc.Close)
	return svc
}

func TestSendGroupMessageUnknownGroup(t *testing.T) {
	groupRepo := &fakeGroupRepo{
		groups:  map[uint64]*model.Group{},
		members: map[uint64]map[uint64]bool{},
	}
	svc := newTestMessageService(t, groupRepo)

	_, err := svc.SendGroupMessage(context.Background(), 1, &dto.SendGroupMessageReq{
		GroupID: 404, MsgType: consts.MsgTypeText, Content: "hello",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestSendGroupMessageNotMember(t *testing.T) {
	groupRepo := &fakeGroupRepo{
		groups:  map[uint64]*model.Group{10: {ID: 10, Name: "g"}},
		members: map[uint64]map[uint64]bool{10: {2: true}},
	}
	svc := newTestMessageService(t, groupRepo)

	_, err := svc.SendGroupMessage(context.Background(), 1, &dto.SendGroupMessageReq{
		GroupID: 10, MsgType: consts.MsgTypeText, Content: "hello",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, UnauthorizedError)
}

func TestSendGroupMessageInvalidType(t *testing.T) {
	svc := newTestMessageService(t, &fakeGroupRepo{})

	_, err := svc.SendGroupMessage(context.Background(), 1, &dto.SendGroupMessageReq{
		GroupID: 10, MsgType: 99, Content: "hello",
	})
	assert.ErrorIs(t, err, ErrParamInvalid)
}
