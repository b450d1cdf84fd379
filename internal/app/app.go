package app

import (
	"context"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.RateLimiter
	scheduler       *cron.Cron
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	course   *repository.CourseRepository
	progress *repository.ProgressRepository
	quiz     *repository.QuizRepository
	message  *repository.MessageRepository
}

type services struct {
	policy   *service.QuizPolicy
	auth     *service.AuthService
	user     *service.UserService
	course   *service.CourseService
	progress *service.ProgressService
	quiz     *service.QuizService
	message  *service.MessageService
	storage  *service.StorageService
	hub      *service.MessageHub
}

type controllers struct {
	auth     *controller.AuthController
	user     *controller.UserController
	course   *controller.CourseController
	progress *controller.ProgressController
	quiz     *controller.QuizController
	message  *controller.MessageController
	upload   *controller.UploadController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig 热更新：测验策略、限流参数、日志级别
func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		course:   repository.NewCourseRepository(db),
		progress: repository.NewProgressRepository(db),
		quiz:     repository.NewQuizRepository(db),
		message:  repository.NewMessageRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.policy = service.NewQuizPolicy(cfg.Quiz)
	cache := service.NewCourseCache(rdb, time.Duration(cfg.Redis.CourseCacheMinutes)*time.Minute)

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, service.NewMailer(cfg.Mail))
	s.progress = service.NewProgressService(repos.progress, repos.course, repos.user, s.policy)
	s.course = service.NewCourseService(repos.course, repos.progress, s.progress, cache)
	s.quiz = service.NewQuizService(repos.quiz, repos.course, s.progress, s.policy)

	s.hub = service.NewMessageHub(rdb)
	go s.hub.Run()
	s.message = service.NewMessageService(repos.message, repos.user, s.hub)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		user:     controller.NewUserController(s.user),
		course:   controller.NewCourseController(s.course),
		progress: controller.NewProgressController(s.progress),
		quiz:     controller.NewQuizController(s.quiz),
		message:  controller.NewMessageController(s.message, s.hub),
		upload:   controller.NewUploadController(s.storage),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时同步所有课程的学生进度
func (a *App) startBackgroundTasks(s *services) error {
	a.scheduler = cron.New()
	_, err := a.scheduler.AddFunc(a.Config.Scheduler.ProgressSyncSpec, func() {
		if _, err := s.progress.SyncAll(); err != nil {
			logger.Log.Error("scheduled progress sync error", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	a.scheduler.Start()
	return nil
}

// New 组装路由与依赖，不启动定时任务
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(c *config.Config) {
		services.policy.Set(c.Quiz)
		app.limiter.Update(c.RateLimit.MaxRequests, time.Duration(c.RateLimit.WindowMinutes)*time.Minute)
		logger.SetMode(c.Server.Mode)
	})

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	// 监控初始化
	monitoring.Init()

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer("learnhub-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)
	app.tracer = tp

	if err := app.startBackgroundTasks(app.services); err != nil {
		logger.Log.Fatal("Failed to schedule background tasks", zap.Error(err))
	}

	return app
}

// SeedAdmin 命令行创建或提升管理员账号
func (a *App) SeedAdmin(email, password, name string) error {
	auth := service.NewAuthService(repository.NewUserRepository(a.DB), a.Config)
	user, err := auth.SeedAdmin(email, password, name)
	if err != nil {
		return err
	}
	logger.Log.Info("Admin account ready", zap.Uint("userId", user.ID), zap.String("email", user.Email))
	return nil
}

func (a *App) Run(configFile string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if configFile != "" {
		if err := configwatcher.WatchConfig(ctx, configFile, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}

	// 清理 WebSocket 连接
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}

// Close 释放 New 创建的后台资源，测试使用
func (a *App) Close() {
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
}
