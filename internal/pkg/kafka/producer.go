package kafka

import (
	"Banter/internal/api/config"
	log "log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// EventProducer 领域事件出口：消息流水与群组审计事件异步投递到 Kafka
type EventProducer struct {
	producer     sarama.AsyncProducer
	messageTopic string
	groupTopic   string
	done         chan struct{}
}

// MessageRecord 消息流水事件
type MessageRecord struct {
	MessageID      string `json:"message_id,omitempty"`
	ConversationID uint64 `json:"conversation_id,omitempty"`
	GroupID        uint64 `json:"group_id,omitempty"`
	SenderID       uint64 `json:"sender_id"`
	MsgType        int    `json:"msg_type"`
	Seq            uint64 `json:"seq"`
	CreatedAt      int64  `json:"created_at"`
}

// GroupRecord 群组生命周期审计事件
type GroupRecord struct {
	Action     string   `json:"action"` // created / updated / member_added / member_removed / deleted
	GroupID    uint64   `json:"group_id"`
	OperatorID uint64   `json:"operator_id"`
	TargetIDs  []uint64 `json:"target_ids,omitempty"`
	At         int64    `json:"at"`
}

func NewEventProducer(cfg *config.Config) (*EventProducer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	producer, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	p := &EventProducer{
		producer:     producer,
		messageTopic: cfg.Kafka.Producer.MessageTopic,
		groupTopic:   cfg.Kafka.Producer.GroupTopic,
		done:         make(chan struct{}),
	}

	// 异步生产者的错误通道必须有人消费，否则内部缓冲会堵死
	go func() {
		defer close(p.done)
		for err := range producer.Errors() {
			log.Error("Kafka produce failed", "topic", err.Msg.Topic, "err", err.Err)
		}
	}()

	return p, nil
}

// PublishMessageRecord 投递消息流水，key 取会话维度保证同一会话有序
func (p *EventProducer) PublishMessageRecord(rec *MessageRecord) {
	key := rec.ConversationID
	if rec.GroupID > 0 {
		key = rec.GroupID
	}
	p.send(p.messageTopic, strconv.FormatUint(key, 10), rec)
}

// PublishGroupRecord 投递群组审计事件
func (p *EventProducer) PublishGroupRecord(rec *GroupRecord) {
	p.send(p.groupTopic, strconv.FormatUint(rec.GroupID, 10), rec)
}

func (p *EventProducer) send(topic, key string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("Kafka event marshal failed", "topic", topic, "err", err)
		return
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
}

func (p *EventProducer) Close() {
	p.producer.AsyncClose()
	<-p.done
	log.Info("Kafka producer shut down gracefully")
}
