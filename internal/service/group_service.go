package service

import (
	"Banter/internal/api/dto"
	"Banter/internal/model"
	"Banter/internal/pkg/kafka"
	"Banter/internal/pkg/minio"
	"Banter/internal/pkg/mongo"
	"Banter/internal/realtime"
	"Banter/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"

	"gorm.io/gorm"
)

// GroupService 群组生命周期：持久成员关系变更先落库，再驱动在线侧协调
type GroupService interface {
	CreateGroup(ctx context.Context, ownerID uint64, req *dto.CreateGroupReq) (*dto.GroupDTO, error)
	GetGroup(ctx context.Context, userID uint64, groupID uint64) (*dto.GroupDTO, error)
	ListGroups(ctx context.Context, userID uint64) ([]*dto.GroupDTO, error)
	UpdateGroup(ctx context.Context, operatorID uint64, groupID uint64, req *dto.UpdateGroupReq) error
	AddMembers(ctx context.Context, operatorID uint64, groupID uint64, memberIDs []uint64) error
	RemoveMember(ctx context.Context, operatorID uint64, groupID uint64, memberID uint64) error
	LeaveGroup(ctx context.Context, userID uint64, groupID uint64) error
	DeleteGroup(ctx context.Context, operatorID uint64, groupID uint64) error
	MarkGroupRead(ctx context.Context, userID uint64, groupID uint64, seq uint64) error
}

type groupServiceImpl struct {
	groupRepo   repository.GroupRepo
	userRepo    repository.UserRepo
	messageRepo mongo.MessageRepo
	coordinator *realtime.Coordinator
	producer    *kafka.EventProducer
}

func NewGroupService(
	groupRepo repository.GroupRepo,
	userRepo repository.UserRepo,
	messageRepo mongo.MessageRepo,
	coordinator *realtime.Coordinator,
	producer *kafka.EventProducer,
) GroupService {
	return &groupServiceImpl{
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		coordinator: coordinator,
		producer:    producer,
	}
}

// CreateGroup 建群：群主自动入列成员，去重后落库
func (s *groupServiceImpl) CreateGroup(ctx context.Context, ownerID uint64, req *dto.CreateGroupReq) (*dto.GroupDTO, error) {
	memberIDs := dedupMembers(ownerID, req.MemberIDs)

	// 校验成员真实存在，幽灵 ID 直接拒绝
	users, err := s.userRepo.GetUserByIds(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(memberIDs) {
		return nil, ErrTargetUserInvalid
	}

	group := &model.Group{
		Name:          req.Name,
		AvatarURL:     req.AvatarURL,
		OwnerID:       ownerID,
		LastMessageAt: time.Now(),
	}
	if err := s.groupRepo.CreateGroup(ctx, group, memberIDs); err != nil {
		return nil, err
	}

	s.coordinator.GroupCreated(&realtime.GroupEvent{
		GroupID:   group.ID,
		Name:      group.Name,
		AvatarURL: minio.GetPublicURL(group.AvatarURL),
		OwnerID:   ownerID,
		MemberIDs: memberIDs,
	})
	s.producer.PublishGroupRecord(&kafka.GroupRecord{
		Action: "created", GroupID: group.ID, OperatorID: ownerID,
		TargetIDs: memberIDs, At: time.Now().Unix(),
	})

	return s.toGroupDTO(group, memberIDs, 0), nil
}

func (s *groupServiceImpl) GetGroup(ctx context.Context, userID uint64, groupID uint64) (*dto.GroupDTO, error) {
	group, err := s.groupRepo.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	isMember, err := s.groupRepo.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, UnauthorizedError
	}
	memberIDs, err := s.groupRepo.GroupMemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.toGroupDTO(group, memberIDs, 0), nil
}

// ListGroups 群列表，未读数由 SQL 联表计算
func (s *groupServiceImpl) ListGroups(ctx context.Context, userID uint64) ([]*dto.GroupDTO, error) {
	members, err := s.groupRepo.GetUserGroupMemList(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.GroupDTO, 0, len(members))
	for _, m := range members {
		res = append(res, s.toGroupDTO(&m.Group, nil, m.UnreadCount))
	}
	return res, nil
}

// UpdateGroup 群资料变更，仅群主可操作
func (s *groupServiceImpl) UpdateGroup(ctx context.Context, operatorID uint64, groupID uint64, req *dto.UpdateGroupReq) error {
	group, err := s.requireOwner(ctx, operatorID, groupID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
		group.Name = *req.Name
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
		group.AvatarURL = *req.AvatarURL
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.groupRepo.UpdateGroup(ctx, groupID, updates); err != nil {
		return err
	}

	s.coordinator.GroupUpdated(&realtime.GroupEvent{
		GroupID:   groupID,
		Name:      group.Name,
		AvatarURL: minio.GetPublicURL(group.AvatarURL),
		OwnerID:   group.OwnerID,
	})
	s.producer.PublishGroupRecord(&kafka.GroupRecord{
		Action: "updated", GroupID: groupID, OperatorID: operatorID, At: time.Now().Unix(),
	})
	return nil
}

// AddMembers 拉人入群，仅群主可操作
func (s *groupServiceImpl) AddMembers(ctx context.Context, operatorID uint64, groupID uint64, memberIDs []uint64) error {
	group, err := s.requireOwner(ctx, operatorID, groupID)
	if err != nil {
		return err
	}

	newIDs := make([]uint64, 0, len(memberIDs))
	for _, uid := range memberIDs {
		exist, err := s.groupRepo.IsGroupMember(ctx, groupID, uid)
		if err != nil {
			return err
		}
		if exist {
			return ErrGroupMemberExist
		}
		newIDs = append(newIDs, uid)
	}
	if len(newIDs) == 0 {
		return nil
	}

	users, err := s.userRepo.GetUserByIds(ctx, newIDs)
	if err != nil {
		return err
	}
	if len(users) != len(newIDs) {
		return ErrTargetUserInvalid
	}

	if err := s.groupRepo.AddMembers(ctx, groupID, newIDs); err != nil {
		return err
	}

	allIDs, err := s.groupRepo.GroupMemberIDs(ctx, groupID)
	if err != nil {
		return err
	}
	ev := &realtime.GroupEvent{
		GroupID:   groupID,
		Name:      group.Name,
		AvatarURL: minio.GetPublicURL(group.AvatarURL),
		OwnerID:   group.OwnerID,
		MemberIDs: allIDs,
	}
	for _, uid := range newIDs {
		s.coordinator.MemberAdded(ev, uid)
	}
	s.producer.PublishGroupRecord(&kafka.GroupRecord{
		Action: "member_added", GroupID: groupID, OperatorID: operatorID,
		TargetIDs: newIDs, At: time.Now().Unix(),
	})
	return nil
}

// RemoveMember 踢人，仅群主可操作，群主不可被移除
func (s *groupServiceImpl) RemoveMember(ctx context.Context, operatorID uint64, groupID uint64, memberID uint64) error {
	group, err := s.requireOwner(ctx, operatorID, groupID)
	if err != nil {
		return err
	}
	if memberID == group.OwnerID {
		return ErrGroupOwnerLeave
	}
	return s.removeMember(ctx, group, operatorID, memberID)
}

// LeaveGroup 主动退群，群主不可退出自己的群
func (s *groupServiceImpl) LeaveGroup(ctx context.Context, userID uint64, groupID uint64) error {
	group, err := s.groupRepo.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if userID == group.OwnerID {
		return ErrGroupOwnerLeave
	}
	return s.removeMember(ctx, group, userID, userID)
}

// DeleteGroup 解散群，仅群主可操作
// 先清掉持久态，再驱逐在线房间，最后异步清理消息明细
func (s *groupServiceImpl) DeleteGroup(ctx context.Context, operatorID uint64, groupID uint64) error {
	if _, err := s.requireOwner(ctx, operatorID, groupID); err != nil {
		return err
	}
	if err := s.groupRepo.DeleteGroup(ctx, groupID); err != nil {
		return err
	}

	s.coordinator.GroupDeleted(groupID)
	s.producer.PublishGroupRecord(&kafka.GroupRecord{
		Action: "deleted", GroupID: groupID, OperatorID: operatorID, At: time.Now().Unix(),
	})

	go func() {
		cleanCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.messageRepo.DeleteGroupMessages(cleanCtx, groupID); err != nil {
			log.Error("Failed to clean group messages", "group_id", groupID, "err", err)
		}
	}()
	return nil
}

// MarkGroupRead 群内标记已读，seq 不可越过当前最大序号
func (s *groupServiceImpl) MarkGroupRead(ctx context.Context, userID uint64, groupID uint64, seq uint64) error {
	isMember, err := s.groupRepo.IsGroupMember(ctx, groupID, userID)
	if err != nil || !isMember {
		return UnauthorizedError
	}
	group, err := s.groupRepo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	targetSeq := seq
	if targetSeq > group.MaxMsgSeq {
		targetSeq = group.MaxMsgSeq
	}
	return s.groupRepo.UpdateReadSeq(ctx, groupID, userID, targetSeq)
}

func (s *groupServiceImpl) removeMember(ctx context.Context, group *model.Group, operatorID, memberID uint64) error {
	affected, err := s.groupRepo.RemoveMember(ctx, group.ID, memberID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGroupMemberNotFound
	}

	s.coordinator.MemberRemoved(&realtime.GroupEvent{
		GroupID:   group.ID,
		Name:      group.Name,
		AvatarURL: minio.GetPublicURL(group.AvatarURL),
		OwnerID:   group.OwnerID,
	}, memberID)
	s.producer.PublishGroupRecord(&kafka.GroupRecord{
		Action: "member_removed", GroupID: group.ID, OperatorID: operatorID,
		TargetIDs: []uint64{memberID}, At: time.Now().Unix(),
	})
	return nil
}

func (s *groupServiceImpl) requireOwner(ctx context.Context, operatorID, groupID uint64) (*model.Group, error) {
	group, err := s.groupRepo.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if group.OwnerID != operatorID {
		return nil, ErrGroupOwnerOnly
	}
	return group, nil
}

func (s *groupServiceImpl) toGroupDTO(group *model.Group, memberIDs []uint64, unread uint64) *dto.GroupDTO {
	return &dto.GroupDTO{
		GroupID:        group.ID,
		Name:           group.Name,
		AvatarURL:      minio.GetPublicURL(group.AvatarURL),
		OwnerID:        group.OwnerID,
		MemberIDs:      memberIDs,
		LastMsgContent: group.LastMsgContent,
		LastMsgType:    group.LastMsgType,
		LastSenderID:   group.LastSenderID,
		LastMessageAt:  group.LastMessageAt,
		UnreadCount:    unread,
	}
}

func dedupMembers(ownerID uint64, ids []uint64) []uint64 {
	seen := map[uint64]struct{}{ownerID: {}}
	res := []uint64{ownerID}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
