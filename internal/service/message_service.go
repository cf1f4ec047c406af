package service

import (
	"Banter/internal/api/dto"
	"Banter/internal/model"
	"Banter/internal/pkg/consts"
	"Banter/internal/pkg/kafka"
	"Banter/internal/pkg/mongo"
	"Banter/internal/pkg/redis"
	"Banter/internal/realtime"
	"Banter/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// MessageService 消息链路：MySQL 定序 -> MongoDB 明细 -> Kafka 流水 -> 实时扇出
type MessageService interface {
	SendDirectMessage(ctx context.Context, senderID uint64, req *dto.SendDirectMessageReq) (*dto.MessageDTO, error)
	SendGroupMessage(ctx context.Context, senderID uint64, req *dto.SendGroupMessageReq) (*dto.MessageDTO, error)
	GetConversationHistory(ctx context.Context, userID uint64, convID uint64, lastSeq uint64, pageSize int) ([]*dto.MessageDTO, error)
	GetGroupHistory(ctx context.Context, userID uint64, groupID uint64, lastSeq uint64, pageSize int) ([]*dto.MessageDTO, error)
	GetConversationList(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error)
	MarkConversationRead(ctx context.Context, userID uint64, convID uint64, seq uint64) error
	Close()
}

type messageServiceImpl struct {
	convRepo    repository.ConversationRepo
	groupRepo   repository.GroupRepo
	userRepo    repository.UserRepo
	messageRepo mongo.MessageRepo
	router      *realtime.Router
	producer    *kafka.EventProducer
	retryChan   chan *mongo.Message
	wg          sync.WaitGroup
	stopChan    chan struct{}
}

// NewMessageService 构造函数：初始化服务并启动异步校准工作池
func NewMessageService(
	convRepo repository.ConversationRepo,
	groupRepo repository.GroupRepo,
	userRepo repository.UserRepo,
	messageRepo mongo.MessageRepo,
	router *realtime.Router,
	producer *kafka.EventProducer,
) MessageService {
	s := &messageServiceImpl{
		convRepo:    convRepo,
		groupRepo:   groupRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		router:      router,
		producer:    producer,
		retryChan:   make(chan *mongo.Message, 2048),
		stopChan:    make(chan struct{}),
	}

	workerCount := 5
	s.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go s.calibrationWorker()
	}

	return s
}

// SendDirectMessage 发送单聊消息
func (s *messageServiceImpl) SendDirectMessage(ctx context.Context, senderID uint64, req *dto.SendDirectMessageReq) (*dto.MessageDTO, error) {
	if req.MsgType != consts.MsgTypeText && req.MsgType != consts.MsgTypeImage {
		return nil, ErrParamInvalid
	}

	// 自聊放行，客户端用作备忘录
	if req.TargetUserID != senderID {
		target, err := s.userRepo.GetUserById(ctx, req.TargetUserID)
		if err != nil {
			return nil, err
		}
		if target == nil || target.IsDelete {
			return nil, ErrTargetUserInvalid
		}
	}

	convID, err := s.getOrCreateConversation(ctx, senderID, req.TargetUserID)
	if err != nil {
		return nil, err
	}

	// MySQL 原子定序
	newSeq, err := s.convRepo.IncrMaxSeq(ctx, convID, req.Content, int8(req.MsgType), senderID)
	if err != nil {
		return nil, err
	}

	msgModel := &mongo.Message{
		ConversationID: convID,
		SenderID:       senderID,
		MsgType:        req.MsgType,
		Content:        req.Content,
		Payload:        mongo.MMap(req.Payload),
		Seq:            newSeq,
		CreatedAt:      time.Now(),
	}
	s.persistMessage(msgModel)

	s.producer.PublishMessageRecord(&kafka.MessageRecord{
		MessageID: msgModel.ID, ConversationID: convID, SenderID: senderID,
		MsgType: req.MsgType, Seq: newSeq, CreatedAt: msgModel.CreatedAt.Unix(),
	})
	s.releaseMediaHold(ctx, req.Payload)

	outcome, err := s.router.RouteDirect(ctx, req.OriginConnID, &realtime.MessageEvent{
		ID: msgModel.ID, SenderID: senderID, RecipientID: req.TargetUserID,
		MsgType: req.MsgType, Content: req.Content, Payload: req.Payload,
		Seq: newSeq, CreatedAt: msgModel.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if outcome.Dropped > 0 {
		log.Warn("Direct fanout dropped frames", "conv_id", convID, "dropped", outcome.Dropped)
	}

	return s.toMessageDTO(msgModel), nil
}

// SendGroupMessage 发送群聊消息
// 定序前先校验成员资格，避免非成员白白消耗序号
func (s *messageServiceImpl) SendGroupMessage(ctx context.Context, senderID uint64, req *dto.SendGroupMessageReq) (*dto.MessageDTO, error) {
	if req.MsgType != consts.MsgTypeText && req.MsgType != consts.MsgTypeImage {
		return nil, ErrParamInvalid
	}

	isMember, err := s.groupRepo.IsGroupMember(ctx, req.GroupID, senderID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		// 区分群不存在与非成员两种失败
		if _, err := s.groupRepo.GetGroup(ctx, req.GroupID); errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, UnauthorizedError
	}

	newSeq, err := s.groupRepo.IncrMaxSeq(ctx, req.GroupID, req.Content, int8(req.MsgType), senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	msgModel := &mongo.Message{
		GroupID:   req.GroupID,
		SenderID:  senderID,
		MsgType:   req.MsgType,
		Content:   req.Content,
		Payload:   mongo.MMap(req.Payload),
		Seq:       newSeq,
		CreatedAt: time.Now(),
	}
	s.persistMessage(msgModel)

	s.producer.PublishMessageRecord(&kafka.MessageRecord{
		MessageID: msgModel.ID, GroupID: req.GroupID, SenderID: senderID,
		MsgType: req.MsgType, Seq: newSeq, CreatedAt: msgModel.CreatedAt.Unix(),
	})
	s.releaseMediaHold(ctx, req.Payload)

	outcome, err := s.router.RouteGroup(ctx, req.OriginConnID, &realtime.MessageEvent{
		ID: msgModel.ID, SenderID: senderID, GroupID: req.GroupID,
		MsgType: req.MsgType, Content: req.Content, Payload: req.Payload,
		Seq: newSeq, CreatedAt: msgModel.CreatedAt,
	})
	if err != nil {
		if errors.Is(err, realtime.ErrNotGroupMember) {
			return nil, UnauthorizedError
		}
		return nil, err
	}
	if outcome.Dropped > 0 {
		log.Warn("Group fanout dropped frames", "group_id", req.GroupID, "dropped", outcome.Dropped)
	}

	return s.toMessageDTO(msgModel), nil
}

// GetConversationHistory 拉取单聊历史，包含空洞自愈
func (s *messageServiceImpl) GetConversationHistory(ctx context.Context, userID uint64, convID uint64, lastSeq uint64, pageSize int) ([]*dto.MessageDTO, error) {
	isMember, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil || !isMember {
		return nil, UnauthorizedError
	}

	models, err := s.messageRepo.GetConversationHistory(ctx, convID, lastSeq, pageSize)
	if err != nil {
		return nil, err
	}

	// MongoDB 落库失败但 MySQL 已定序时会出现首条空洞，用预览信息补位
	if lastSeq == 0 {
		conv, err := s.convRepo.GetConversation(ctx, convID)
		if err == nil {
			hasGap := (len(models) == 0 && conv.MaxMsgSeq > 0) || (len(models) > 0 && models[0].Seq < conv.MaxMsgSeq)
			if hasGap {
				stub := &dto.MessageDTO{
					ConversationID: conv.ID,
					Content:        conv.LastMsgContent,
					MsgType:        int(conv.LastMsgType),
					SenderID:       conv.LastSenderID,
					Seq:            conv.MaxMsgSeq,
					CreatedAt:      conv.LastMessageAt,
				}
				res := []*dto.MessageDTO{stub}
				for _, m := range models {
					res = append(res, s.toMessageDTO(m))
				}
				return res, nil
			}
		}
	}

	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		res = append(res, s.toMessageDTO(m))
	}
	return res, nil
}

// GetGroupHistory 拉取群聊历史
func (s *messageServiceImpl) GetGroupHistory(ctx context.Context, userID uint64, groupID uint64, lastSeq uint64, pageSize int) ([]*dto.MessageDTO, error) {
	isMember, err := s.groupRepo.IsGroupMember(ctx, groupID, userID)
	if err != nil || !isMember {
		return nil, UnauthorizedError
	}

	models, err := s.messageRepo.GetGroupHistory(ctx, groupID, lastSeq, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		res = append(res, s.toMessageDTO(m))
	}
	return res, nil
}

// GetConversationList 获取单聊会话列表
func (s *messageServiceImpl) GetConversationList(ctx context.Context, userID uint64) ([]*dto.ConversationDTO, error) {
	members, err := s.convRepo.GetUserConversationMemList(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationDTO, 0, len(members))
	for _, m := range members {
		d := &dto.ConversationDTO{
			ConversationID: m.ConversationID,
			LastMsgContent: m.Conversation.LastMsgContent,
			LastMsgType:    m.Conversation.LastMsgType,
			LastSenderID:   m.Conversation.LastSenderID,
			LastMessageAt:  m.Conversation.LastMessageAt,
			UnreadCount:    m.UnreadCount,
		}
		peerID, err := s.parsePeerID(m.Conversation.PeerKey, userID)
		if err == nil {
			d.PeerID = peerID
		}
		res = append(res, d)
	}
	return res, nil
}

// MarkConversationRead 单聊标记已读
func (s *messageServiceImpl) MarkConversationRead(ctx context.Context, userID uint64, convID uint64, seq uint64) error {
	isMember, err := s.convRepo.IsMember(ctx, convID, userID)
	if err != nil || !isMember {
		return UnauthorizedError
	}

	conv, err := s.convRepo.GetConversation(ctx, convID)
	if err != nil {
		return err
	}

	targetSeq := seq
	if targetSeq > conv.MaxMsgSeq {
		targetSeq = conv.MaxMsgSeq
	}
	return s.convRepo.UpdateReadSeq(ctx, convID, userID, targetSeq)
}

func (s *messageServiceImpl) Close() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("MessageService shut down gracefully")
}

// getOrCreateConversation 针对单聊：获取或创建会话
func (s *messageServiceImpl) getOrCreateConversation(ctx context.Context, userID, targetUserID uint64) (uint64, error) {
	// 生成单聊唯一的 PeerKey
	var peerKey string
	if userID < targetUserID {
		peerKey = fmt.Sprintf("%d_%d", userID, targetUserID)
	} else {
		peerKey = fmt.Sprintf("%d_%d", targetUserID, userID)
	}

	conv, err := s.convRepo.GetConversationByPeerKey(ctx, peerKey)
	if err == nil {
		return conv.ID, nil
	}

	newConv := &model.Conversation{
		PeerKey:       peerKey,
		LastMessageAt: time.Now(),
	}
	members := []*model.ConversationMember{
		{UserID: userID, JoinedAt: time.Now()},
	}
	if targetUserID != userID {
		members = append(members, &model.ConversationMember{UserID: targetUserID, JoinedAt: time.Now()})
	}

	if err := s.convRepo.CreateConversation(ctx, newConv, members); err != nil {
		return 0, err
	}
	return newConv.ID, nil
}

// persistMessage 存入 MongoDB，失败转入校准队列兜底
func (s *messageServiceImpl) persistMessage(msg *mongo.Message) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.messageRepo.SaveMessage(writeCtx, msg); err != nil {
		select {
		case s.retryChan <- msg:
		default:
		}
	}
}

// releaseMediaHold 消息引用了上传的媒体后，从暂存索引中摘除，避免被清理任务回收
func (s *messageServiceImpl) releaseMediaHold(ctx context.Context, payload map[string]interface{}) {
	if payload == nil {
		return
	}
	objectName, ok := payload["object_name"].(string)
	if !ok || objectName == "" {
		return
	}
	if err := redis.HDel(ctx, consts.MediaTempKey, objectName); err != nil {
		log.Warn("Failed to release media hold", "object", objectName, "err", err)
	}
}

func (s *messageServiceImpl) calibrationWorker() {
	defer s.wg.Done()
	for {
		select {
		case msg := <-s.retryChan:
			backoff := time.Second
			for i := 0; i < 3; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := s.messageRepo.SaveMessage(ctx, msg)
				cancel()
				if err == nil {
					break
				}
				time.Sleep(backoff)
				backoff *= 2
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *messageServiceImpl) parsePeerID(peerKey string, currentUserID uint64) (uint64, error) {
	var u1, u2 uint64
	_, err := fmt.Sscanf(peerKey, "%d_%d", &u1, &u2)
	if err != nil {
		return 0, err
	}
	if u1 == currentUserID {
		return u2, nil
	}
	return u1, nil
}

func (s *messageServiceImpl) toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID: m.ID, ConversationID: m.ConversationID, GroupID: m.GroupID,
		SenderID: m.SenderID, MsgType: m.MsgType, Content: m.Content,
		Payload: m.Payload, Seq: m.Seq, CreatedAt: m.CreatedAt,
	}
}
