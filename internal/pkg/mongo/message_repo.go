package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetConversationHistory(ctx context.Context, convID uint64, lastSeq uint64, pageSize int) ([]*Message, error)
	GetGroupHistory(ctx context.Context, groupID uint64, lastSeq uint64, pageSize int) ([]*Message, error)
	DeleteGroupMessages(ctx context.Context, groupID uint64) error
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection("message"),
	}
}

// SaveMessage 将消息存入 MongoDB
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// GetConversationHistory 单聊历史消息查询
// lastSeq 为当前页面最旧一条消息的序号，第一页传 0
func (s *messageRepoImpl) GetConversationHistory(ctx context.Context, convID uint64, lastSeq uint64, pageSize int) ([]*Message, error) {
	return s.history(ctx, bson.M{"conversation_id": convID}, lastSeq, pageSize)
}

// GetGroupHistory 群聊历史消息查询
func (s *messageRepoImpl) GetGroupHistory(ctx context.Context, groupID uint64, lastSeq uint64, pageSize int) ([]*Message, error) {
	return s.history(ctx, bson.M{"group_id": groupID}, lastSeq, pageSize)
}

func (s *messageRepoImpl) history(ctx context.Context, filter bson.M, lastSeq uint64, pageSize int) ([]*Message, error) {
	// 游标过滤：拉取比当前最旧序号更小的消息
	if lastSeq > 0 {
		filter["seq"] = bson.M{"$lt": lastSeq}
	}

	// 按 seq 降序排列 (最新的在前)，限制返回条数
	findOptions := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// DeleteGroupMessages 解散群时清理消息明细
func (s *messageRepoImpl) DeleteGroupMessages(ctx context.Context, groupID uint64) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"group_id": groupID})
	return err
}
