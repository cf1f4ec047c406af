package repository

import (
	"Banter/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type GroupRepo interface {
	CreateGroup(ctx context.Context, group *model.Group, memberIDs []uint64) error
	GetGroup(ctx context.Context, groupID uint64) (*model.Group, error)
	UpdateGroup(ctx context.Context, groupID uint64, updates map[string]interface{}) error
	DeleteGroup(ctx context.Context, groupID uint64) error

	IsGroupMember(ctx context.Context, groupID uint64, userID uint64) (bool, error)
	GroupMemberIDs(ctx context.Context, groupID uint64) ([]uint64, error)
	AddMembers(ctx context.Context, groupID uint64, userIDs []uint64) error
	RemoveMember(ctx context.Context, groupID uint64, userID uint64) (int64, error)

	GetUserGroupIDs(ctx context.Context, userID uint64) ([]uint64, error)
	GetUserGroupMemList(ctx context.Context, userID uint64) ([]*model.GroupMember, error)

	UpdateReadSeq(ctx context.Context, groupID, userID, seq uint64) error
	IncrMaxSeq(ctx context.Context, groupID uint64, lastMsg string, msgType int8, senderID uint64) (uint64, error)
}

type groupRepoImpl struct {
	db *gorm.DB
}

func NewGroupRepo(db *gorm.DB) GroupRepo {
	return &groupRepoImpl{db: db}
}

// CreateGroup 开启事务创建群组及初始成员，群主始终在成员表内
func (s *groupRepoImpl) CreateGroup(ctx context.Context, group *model.Group, memberIDs []uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, uid := range memberIDs {
			m := &model.GroupMember{
				GroupID:  group.ID,
				UserID:   uid,
				JoinedAt: now,
			}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *groupRepoImpl) GetGroup(ctx context.Context, groupID uint64) (*model.Group, error) {
	var group model.Group
	err := s.db.WithContext(ctx).First(&group, groupID).Error
	return &group, err
}

func (s *groupRepoImpl) UpdateGroup(ctx context.Context, groupID uint64, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&model.Group{}).
		Where("id = ?", groupID).
		Updates(updates).Error
}

// DeleteGroup 删除群组与全部成员关系
func (s *groupRepoImpl) DeleteGroup(ctx context.Context, groupID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Group{}, groupID).Error
	})
}

// IsGroupMember 检查用户是否是群成员
func (s *groupRepoImpl) IsGroupMember(ctx context.Context, groupID uint64, userID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// GroupMemberIDs 获取群全部成员 ID，消息扇出的权威名单
func (s *groupRepoImpl) GroupMemberIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	ids := make([]uint64, 0)
	err := s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (s *groupRepoImpl) AddMembers(ctx context.Context, groupID uint64, userIDs []uint64) error {
	now := time.Now()
	members := make([]*model.GroupMember, 0, len(userIDs))
	for _, uid := range userIDs {
		members = append(members, &model.GroupMember{
			GroupID:  groupID,
			UserID:   uid,
			JoinedAt: now,
		})
	}
	return s.db.WithContext(ctx).Create(&members).Error
}

// RemoveMember 返回受影响行数，0 表示成员本就不在群内
func (s *groupRepoImpl) RemoveMember(ctx context.Context, groupID uint64, userID uint64) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{})
	return result.RowsAffected, result.Error
}

// GetUserGroupIDs 用户所属全部群 ID，连接建立时用于房间恢复
func (s *groupRepoImpl) GetUserGroupIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	ids := make([]uint64, 0)
	err := s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	return ids, err
}

// GetUserGroupMemList 联表查询，利用嵌套 Model 自动装配
func (s *groupRepoImpl) GetUserGroupMemList(ctx context.Context, userID uint64) ([]*model.GroupMember, error) {
	var members []*model.GroupMember
	// 使用 Group__ 别名配合 GORM 的嵌套填充特性
	err := s.db.WithContext(ctx).Table("group_members m").
		Select("m.*, "+
			"g.id AS `Group__id`, g.name AS `Group__name`, "+
			"g.avatar_url AS `Group__avatar_url`, g.owner_id AS `Group__owner_id`, "+
			"g.max_msg_seq AS `Group__max_msg_seq`, "+
			"g.last_msg_content AS `Group__last_msg_content`, "+
			"g.last_msg_type AS `Group__last_msg_type`, "+
			"g.last_sender_id AS `Group__last_sender_id`, "+
			"g.last_message_at AS `Group__last_message_at`, "+
			"(g.max_msg_seq - m.read_msg_seq) AS unread_count").
		Joins("JOIN `groups` g ON m.group_id = g.id").
		Where("m.user_id = ?", userID).
		Order("g.last_message_at DESC").
		Find(&members).Error
	return members, err
}

// UpdateReadSeq 更新用户群内已读进度
func (s *groupRepoImpl) UpdateReadSeq(ctx context.Context, groupID, userID, seq uint64) error {
	return s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("read_msg_seq", seq).Error
}

// IncrMaxSeq 核心定序逻辑：利用 MySQL 行锁确保 Seq 绝对递增
func (s *groupRepoImpl) IncrMaxSeq(ctx context.Context, groupID uint64, lastMsg string, msgType int8, senderID uint64) (uint64, error) {
	var maxSeq uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 原子更新序列号与预览信息
		res := tx.Model(&model.Group{}).Where("id = ?", groupID).
			Updates(map[string]interface{}{
				"max_msg_seq":      gorm.Expr("max_msg_seq + 1"),
				"last_msg_content": lastMsg,
				"last_msg_type":    msgType,
				"last_sender_id":   senderID,
				"last_message_at":  time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		// Updates 碰到不存在的群不会报错，靠影响行数识别
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		// 读取并返回自增后的最新 Seq
		return tx.Model(&model.Group{}).Select("max_msg_seq").Where("id = ?", groupID).Scan(&maxSeq).Error
	})
	return maxSeq, err
}
