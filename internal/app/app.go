package app

import (
	"context"
	"equiz_backend/internal/config"
	"equiz_backend/internal/controller"
	"equiz_backend/internal/repository"
	"equiz_backend/internal/service"
	"equiz_backend/internal/util"
	"equiz_backend/pkg/configwatcher"
	"equiz_backend/pkg/database"
	"equiz_backend/pkg/logger"
	"equiz_backend/pkg/monitoring"
	"equiz_backend/pkg/security"
	"equiz_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
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
	tracer          *sdktrace.TracerProvider
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user      *repository.UserRepository
	course    *repository.CourseRepository
	class     *repository.ClassRepository
	question  *repository.QuestionRepository
	quiz      *repository.QuizRepository
	attempt   *repository.AttemptRepository
	quizCache *repository.QuizQuestionCache
}

type services struct {
	auth       *service.AuthService
	course     *service.CourseService
	question   *service.QuestionService
	quiz       *service.QuizService
	statistics *service.StatisticsService
	attempt    *service.AttemptService
}

type controllers struct {
	auth     *controller.AuthController
	course   *controller.CourseController
	question *controller.QuestionController
	quiz     *controller.QuizController
	attempt  *controller.AttemptController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		course:    repository.NewCourseRepository(db),
		class:     repository.NewClassRepository(db),
		question:  repository.NewQuestionRepository(db),
		quiz:      repository.NewQuizRepository(db),
		attempt:   repository.NewAttemptRepository(db),
		quizCache: repository.NewQuizQuestionCache(rdb, cfg.Redis.CacheTTL()),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.course = service.NewCourseService(repos.course, repos.class, repos.user)
	s.question = service.NewQuestionService(repos.question)
	s.quiz = service.NewQuizService(db, repos.quiz, repos.course, repos.class, repos.question, repos.attempt, repos.quizCache)
	s.statistics = service.NewStatisticsService(repos.quiz, repos.attempt, repos.class)
	s.attempt = service.NewAttemptService(db, repos.quiz, repos.attempt, repos.quizCache, s.statistics, cfg.Quiz)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		course:   controller.NewCourseController(s.course),
		question: controller.NewQuestionController(s.question),
		quiz:     controller.NewQuizController(s.quiz),
		attempt:  controller.NewAttemptController(s.attempt),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时清理超时作答并关闭已结束的测验，ctx 取消后退出
func (a *App) startBackgroundTasks(ctx context.Context, s *services, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.attempt.ExpireStaleAttempts(ctx); err != nil {
					logger.Log.Error("attempt expiry sweep error", zap.Error(err))
				}
				if n, err := s.quiz.CompleteEndedQuizzes(ctx); err != nil {
					logger.Log.Error("quiz completion sweep error", zap.Error(err))
				} else if n > 0 {
					logger.Log.Info("completed ended quizzes", zap.Int("count", n))
				}
			}
		}
	}()
}

func (a *App) watchConfig(ctx context.Context) {
	if a.Config.FilePath == "" {
		return
	}
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg)
		logger.Log.Info("Log level applied", zap.String("level", logger.Level().String()))
	})

	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.FilePath, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	app.Redis = rdb

	if err := util.RegisterValidators(); err != nil {
		logger.Log.Fatal("Failed to register validators", zap.Error(err))
	}

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg, db)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("equiz-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, services, cfg.Quiz.SweepInterval())
	app.watchConfig(ctx)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 停止后台任务
	if a.cancel != nil {
		a.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
