package api

import "Banter/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	UserHandler    *handler.UserHandler
	GroupHandler   *handler.GroupHandler
	MessageHandler *handler.MessageHandler
	MediaHandler   *handler.MediaHandler
	WSHandler      *handler.WsHandler
}
