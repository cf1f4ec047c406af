package model

import "time"

// Group 群组主表，消息定序状态与最新一条消息预览一并落在这里
type Group struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"type:varchar(64);not null" json:"name"`
	AvatarURL      string    `gorm:"type:varchar(255)" json:"avatarUrl"`
	OwnerID        uint64    `gorm:"not null;index" json:"ownerId"`
	MaxMsgSeq      uint64    `gorm:"not null;default:0" json:"maxMsgSeq"`
	LastMsgContent string    `gorm:"type:varchar(255)" json:"lastMsgContent"`
	LastMsgType    int8      `gorm:"not null;default:1" json:"lastMsgType"`
	LastSenderID   uint64    `gorm:"not null;default:0" json:"lastSenderId"`
	LastMessageAt  time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Group) TableName() string { return "groups" }

// GroupMember 群组成员表，持久成员关系的唯一事实来源
type GroupMember struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID    uint64    `gorm:"uniqueIndex:idx_group_user" json:"groupId"`
	UserID     uint64    `gorm:"uniqueIndex:idx_group_user;index" json:"userId"`
	ReadMsgSeq uint64    `gorm:"not null;default:0" json:"readMsgSeq"` // 已读进度
	JoinedAt   time.Time `json:"joinedAt"`

	Group Group `gorm:"foreignKey:GroupID;references:ID" json:"group"`

	// 虚拟字段：仅读不写，存储 SQL 计算结果
	UnreadCount uint64 `gorm:"->" json:"unreadCount"`
}

func (GroupMember) TableName() string { return "group_members" }
