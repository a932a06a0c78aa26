package app

import (
	"equiz_backend/docs"
	"equiz_backend/internal/config"
	"equiz_backend/internal/middleware"
	"equiz_backend/internal/model"
	"equiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)
		// 教师相关接口
		a.registerInstructorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.Profile)

	group.GET("/courses", c.course.ListCourses)
	group.GET("/quizzes", c.quiz.List)
	group.GET("/quizzes/:id", c.quiz.Get)

	// 作答相关
	group.POST("/quizzes/:id/attempt", c.attempt.Start)
	group.POST("/attempts/:attemptId/submit", c.attempt.Submit)
	group.GET("/attempts/:attemptId/results", c.attempt.Results)
}

func (a *App) registerInstructorRoutes(group *gin.RouterGroup, c *controllers) {
	staff := group.Group("")
	staff.Use(middleware.RoleMiddleware(model.Instructor))
	{
		staff.POST("/courses", c.course.CreateCourse)
		staff.POST("/classes", c.course.CreateClass)
		staff.GET("/classes", c.course.ListClasses)
		staff.POST("/classes/:id/students", c.course.Enroll)

		// 题库
		staff.POST("/questions", c.question.Create)
		staff.GET("/questions/:id", c.question.Get)
		staff.GET("/question-bank", c.question.Bank)

		// 测验管理
		staff.POST("/quizzes", c.quiz.Create)
		staff.PUT("/quizzes/:id", c.quiz.Update)
		staff.DELETE("/quizzes/:id", c.quiz.Delete)
		staff.POST("/quizzes/:id/publish", c.quiz.Publish)
		staff.GET("/quizzes/:id/responses", c.attempt.Responses)

		staff.POST("/attempts/:attemptId/grade", c.attempt.Grade) // 人工评分
	}
}
