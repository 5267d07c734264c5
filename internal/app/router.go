package app

import (
	"startup_edu_backend/docs"
	"startup_edu_backend/internal/config"
	"startup_edu_backend/internal/middleware"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 目录与详情对游客开放；详情可选认证，登录用户可看自己的解锁状态
		public.GET("/courses", c.course.GetCourses)
		public.GET("/courses/:id", middleware.TryAuthMiddleware(cfg), c.course.GetCourseDetail)
		public.GET("/events", c.event.GetPublishedEvents)

		// 支付网关回调走自己的HMAC验签，不走JWT
		public.POST("/payments/webhook", c.payment.Webhook)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/user/profile", c.auth.UpdateProfile)

	// 选课与订单
	rg.POST("/courses/:id/enroll", c.course.Enroll)
	rg.POST("/courses/:id/order", c.payment.CreateOrder)
	rg.GET("/my/courses", c.course.GetMyEnrollments)
	rg.GET("/my/orders", c.payment.GetMyOrders)

	// 学习进度
	rg.GET("/courses/:id/progress", c.progress.GetCourseProgress)
	rg.POST("/lessons/:lessonId/video-watched", c.progress.MarkVideoWatched)
	rg.POST("/lessons/:lessonId/complete", c.progress.MarkLessonCompleted)
	rg.GET("/lessons/:lessonId/quiz", c.progress.GetLessonQuiz)
	rg.POST("/lessons/:lessonId/quiz/submit", c.progress.SubmitQuiz)
	rg.GET("/lessons/:lessonId/status", c.progress.GetLessonStatus)

	// 创业奖
	rg.POST("/startup-award/:courseId/enroll", c.award.EnrollPhase)
	rg.POST("/startup-award/:courseId/check", c.award.CheckCompletion)
	rg.GET("/startup-award/:courseId/status", c.award.GetStatus)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Admin),
	)
	{
		// 用户管理
		admin.GET("/users", c.admin.GetUsers)
		admin.GET("/users/:id", c.admin.GetUserDetail)
		admin.PUT("/users/:id/disabled", c.admin.SetUserDisabled)
		admin.PUT("/users/:id/password", c.admin.ResetUserPassword)

		// 课程内容管理
		admin.POST("/courses", c.admin.CreateCourse)
		admin.PUT("/courses/:id", c.admin.UpdateCourse)
		admin.PUT("/courses/:id/published", c.admin.SetCoursePublished)
		admin.DELETE("/courses/:id", c.admin.DeleteCourse)
		admin.POST("/lessons", c.admin.CreateLesson)
		admin.PUT("/lessons/:id", c.admin.UpdateLesson)
		admin.DELETE("/lessons/:id", c.admin.DeleteLesson)
		admin.POST("/lessons/:id/video", c.admin.UploadLessonVideo)
		admin.PUT("/lessons/:id/quiz", c.admin.SaveQuiz)

		// 活动管理
		admin.GET("/events", c.admin.GetAllEvents)
		admin.POST("/events", c.admin.CreateEvent)
		admin.PUT("/events/:id", c.admin.UpdateEvent)
		admin.DELETE("/events/:id", c.admin.DeleteEvent)

		// 创业奖运营
		admin.POST("/startup-award/reset", c.award.ResetPhase1)
		admin.GET("/export/startup-award/:courseId", c.admin.ExportAwardProgress)

		// 审计与导出
		admin.GET("/audit-logs", c.admin.GetAuditLogs)
		admin.GET("/export/users", c.admin.ExportUsers)
	}
}
