package wire

import (
	"Banter/internal/api"
	"Banter/internal/api/config"
	"Banter/internal/api/handler"
	"Banter/internal/job"
	"Banter/internal/pkg/cron"
	"Banter/internal/pkg/kafka"
	pkgmongo "Banter/internal/pkg/mongo"
	"Banter/internal/realtime"
	"Banter/internal/repository"
	"Banter/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router         *gin.Engine
	DB             *gorm.DB
	Hub            *realtime.Hub
	MessageService service.MessageService
	Producer       *kafka.EventProducer
	CronMgr        *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	groupRepo := repository.NewGroupRepo(db)
	convRepo := repository.NewConversationRepo(db)
	messageRepo := pkgmongo.NewMessageRepo(mongoDB)

	// 实时层：Hub 维护在线状态，Router 负责消息扇出，Coordinator 同步群生命周期
	hub := realtime.NewHub()
	router := realtime.NewRouter(hub, groupRepo)
	coordinator := realtime.NewCoordinator(hub)

	producer, err := kafka.NewEventProducer(cfg)
	if err != nil {
		return nil, err
	}

	userService := service.NewUserService(userRepo)
	groupService := service.NewGroupService(groupRepo, userRepo, messageRepo, coordinator, producer)
	messageService := service.NewMessageService(convRepo, groupRepo, userRepo, messageRepo, router, producer)

	handlers := &api.HandlersGroup{
		UserHandler:    handler.NewUserHandler(userService),
		GroupHandler:   handler.NewGroupHandler(groupService),
		MessageHandler: handler.NewMessageHandler(messageService),
		MediaHandler:   handler.NewMediaHandler(),
		WSHandler:      handler.NewWsHandler(hub, groupRepo),
	}

	engine := api.SetupRouter(handlers)

	cronMgr := cron.NewCronManager(job.NewMediaCleanupJob())

	return &ApplicationContainer{
		Router:         engine,
		DB:             db,
		Hub:            hub,
		MessageService: messageService,
		Producer:       producer,
		CronMgr:        cronMgr,
	}, nil
}
