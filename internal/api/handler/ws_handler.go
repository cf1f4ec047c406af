package handler

import (
	"Banter/internal/pkg/response"
	"Banter/internal/pkg/security"
	"Banter/internal/realtime"
	"Banter/internal/repository"
	"Banter/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	hub       *realtime.Hub
	groupRepo repository.GroupRepo
}

func NewWsHandler(hub *realtime.Hub, groupRepo repository.GroupRepo) *WsHandler {
	return &WsHandler{hub: hub, groupRepo: groupRepo}
}

// Connect WS 接入点
// 鉴权通过后注册进 Hub，按持久成员关系恢复房间订阅，再下发连接凭据
func (s *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	conn := realtime.NewConn(sock, userID)
	s.hub.Register(conn)

	// 房间恢复：以数据库成员关系为准，杜绝跨连接的残留订阅
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	groupIDs, err := s.groupRepo.GetUserGroupIDs(ctx, userID)
	cancel()
	if err != nil {
		log.Error("WS 房间恢复失败", "userID", userID, "err", err)
		s.hub.Unregister(conn)
		_ = sock.Close()
		return
	}
	s.hub.Reconcile(conn, groupIDs)

	// 下发连接凭据，后续 HTTP 发消息时回传 conn_id 以排除原始连接
	if payload, err := realtime.EncodeEvent(realtime.EventConnected, &realtime.ConnectedEvent{
		ConnID: conn.ID,
		UserID: userID,
	}); err == nil {
		s.hub.Send(conn, payload)
	}

	log.Info("用户 WS 连接已建立", "userID", userID, "connID", conn.ID, "rooms", len(groupIDs))

	go conn.WritePump()
	conn.ReadPump(s.hub, s.handleInbound)
}

// handleInbound 处理上行的房间订阅变更
// 订阅前校验持久成员关系，防止越权收听
func (s *WsHandler) handleInbound(conn *realtime.Conn, ev *realtime.InboundEvent) {
	switch ev.Type {
	case realtime.InboundJoinGroup:
		if ev.GroupID == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		isMember, err := s.groupRepo.IsGroupMember(ctx, ev.GroupID, conn.UserID)
		cancel()
		if err != nil || !isMember {
			log.Warn("拒绝非成员的房间订阅", "userID", conn.UserID, "groupID", ev.GroupID, "err", err)
			return
		}
		s.hub.JoinRoom(conn, ev.GroupID)
	case realtime.InboundLeaveGroup:
		if ev.GroupID == 0 {
			return
		}
		s.hub.LeaveRoom(conn, ev.GroupID)
	default:
		log.Warn("未知上行事件", "userID", conn.UserID, "type", ev.Type)
	}
}
