package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"startup_edu_backend/internal/config"
	"startup_edu_backend/internal/controller"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/service"
	"startup_edu_backend/internal/util"
	"startup_edu_backend/pkg/configwatcher"
	"startup_edu_backend/pkg/database"
	"startup_edu_backend/pkg/logger"
	"startup_edu_backend/pkg/monitoring"
	"startup_edu_backend/pkg/security"
	"startup_edu_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user     *repository.UserRepository
	course   *repository.CourseRepository
	lesson   *repository.LessonRepository
	quiz     *repository.QuizRepository
	progress *repository.ProgressRepository
	award    *repository.StartupAwardRepository
	order    *repository.OrderRepository
	event    *repository.EventRepository
	adminLog *repository.AdminLogRepository
}

type services struct {
	auth         *service.AuthService
	user         *service.UserService
	storage      *service.StorageService
	progress     *service.ProgressService
	notification *service.NotificationService
	award        *service.StartupAwardService
	course       *service.CourseService
	content      *service.ContentService
	payment      *service.PaymentService
	event        *service.EventService
	export       *service.ExportService
	audit        *service.AdminLogService
}

type controllers struct {
	auth     *controller.AuthController
	course   *controller.CourseController
	progress *controller.ProgressController
	award    *controller.StartupAwardController
	payment  *controller.PaymentController
	event    *controller.EventController
	admin    *controller.AdminController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		course:   repository.NewCourseRepository(db),
		lesson:   repository.NewLessonRepository(db),
		quiz:     repository.NewQuizRepository(db),
		progress: repository.NewProgressRepository(db),
		award:    repository.NewStartupAwardRepository(db),
		order:    repository.NewOrderRepository(db),
		event:    repository.NewEventRepository(db),
		adminLog: repository.NewAdminLogRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.progress = service.NewProgressService(repos.progress, repos.lesson, repos.quiz)
	s.notification = service.NewNotificationService(&cfg.Notification)
	s.award = service.NewStartupAwardService(
		repos.award,
		repos.progress,
		repos.lesson,
		repos.course,
		repos.user,
		s.notification,
	)
	s.course = service.NewCourseService(repos.course, s.progress, s.award, repos.user, rdb)
	s.content = service.NewContentService(repos.course, repos.lesson, repos.quiz, s.course, s.storage)
	s.payment = service.NewPaymentService(repos.order, repos.course, repos.user, s.award, &cfg.Revolut)
	s.event = service.NewEventService(repos.event)
	s.export = service.NewExportService(repos.user, repos.award)
	s.audit = service.NewAdminLogService(repos.adminLog)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth, s.user),
		course:   controller.NewCourseController(s.course),
		progress: controller.NewProgressController(s.progress, s.award),
		award:    controller.NewStartupAwardController(s.award),
		payment:  controller.NewPaymentController(s.payment),
		event:    controller.NewEventController(s.event),
		admin:    controller.NewAdminController(s.user, s.content, s.event, s.export, s.audit),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 10000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// 课节完成与阶段推进是两次独立提交，崩溃窗口由对账任务补齐
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			if err := s.award.ReconcilePendingCompletions(200); err != nil {
				logger.Log.Error("award reconcile pass failed", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
		log.Fatalf("Failed to initialize services: %v", err)
	}
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("startup-edu", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	// 配置热更新：目前只有通知webhook地址支持运行时切换
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		services.notification.UpdateConfig(&newCfg.Notification)
		logger.Log.Info("config reloaded",
			zap.Bool("notificationConfigured", newCfg.Notification.WebhookURL != ""))
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
