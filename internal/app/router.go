package app

import (
	"learnhub_backend/docs"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(api, c)

	// 2. 需要登录的路由
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)

		// 3. 管理员路由
		admin := authGroup.Group("")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		a.registerAdminRoutes(admin, c)
	}
}

func (a *App) registerPublicRoutes(api *gin.RouterGroup, c *controllers) {
	api.GET("/health", c.health.HealthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/register", c.auth.Register)
		auth.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(r *gin.RouterGroup, c *controllers) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", c.auth.Me)
		auth.PUT("/me", c.auth.UpdateMe)
		auth.PUT("/password", c.auth.ChangePassword)
	}

	courses := r.Group("/courses")
	{
		courses.GET("", c.course.ListCourses)
		courses.GET("/:id", c.course.GetCourse)
	}

	progress := r.Group("/progress")
	{
		progress.POST("/enroll/:courseId", c.progress.Enroll)
		progress.GET("", c.progress.ListMine)
		progress.GET("/:courseId", c.progress.GetProgress)
		progress.DELETE("/:courseId", c.progress.Unenroll)
		progress.POST("/:courseId/modules/:moduleId/complete", c.progress.CompleteModule)
		progress.POST("/:courseId/modules/:moduleId/watch", c.progress.RecordWatch)
	}

	quizzes := r.Group("/quizzes")
	{
		quizzes.GET("/:courseId/:levelId/:moduleId", c.quiz.GetQuiz)
		quizzes.POST("/:courseId/:levelId/:moduleId/submit", c.quiz.SubmitQuiz)
	}

	messages := r.Group("/messages")
	{
		messages.GET("", c.message.ListMessages)
		messages.GET("/ws", c.message.Connect)
		messages.DELETE("/:id", c.message.DeleteMessage)
		messages.POST("/:id/replies", c.message.Reply)
		messages.DELETE("/:id/replies/:replyId", c.message.DeleteReply)
		messages.POST("/:id/reactions", c.message.ToggleReaction)
	}
}

func (a *App) registerAdminRoutes(r *gin.RouterGroup, c *controllers) {
	users := r.Group("/users")
	{
		users.GET("", c.user.ListUsers)
		users.PATCH("/:id/approval", c.user.SetApproval)
		users.PATCH("/:id/role", c.user.SetRole)
		users.DELETE("/:id", c.user.DeleteUser)
	}

	courses := r.Group("/courses")
	{
		courses.POST("", c.course.CreateCourse)
		courses.PUT("/:id", c.course.UpdateCourse)
		courses.PATCH("/:id/publish", c.course.SetPublished)
		courses.DELETE("/:id", c.course.DeleteCourse)
		courses.POST("/:id/sync", c.course.SyncProgress)

		courses.POST("/:id/sub-courses", c.course.AddSubCourse)
		courses.POST("/:id/sub-courses/reorder", c.course.ReorderSubCourses)
		courses.PUT("/:id/sub-courses/:subId", c.course.UpdateSubCourse)
		courses.DELETE("/:id/sub-courses/:subId", c.course.DeleteSubCourse)

		courses.POST("/:id/levels", c.course.AddLevel)
		courses.POST("/:id/levels/reorder", c.course.ReorderLevels)
		courses.POST("/:id/levels/move", c.course.MoveLevel)
		courses.PUT("/:id/levels/:levelId", c.course.UpdateLevel)
		courses.DELETE("/:id/levels/:levelId", c.course.DeleteLevel)

		courses.POST("/:id/modules", c.course.AddModule)
		courses.POST("/:id/modules/reorder", c.course.ReorderModules)
		courses.POST("/:id/modules/move", c.course.MoveModule)
		courses.PUT("/:id/modules/:moduleId", c.course.UpdateModule)
		courses.DELETE("/:id/modules/:moduleId", c.course.DeleteModule)
	}

	progress := r.Group("/admin/progress")
	{
		progress.GET("/:courseId", c.progress.ListForCourse)
		progress.GET("/:courseId/:studentId", c.progress.GetForStudent)
		progress.DELETE("/:courseId/:studentId", c.progress.Reset)
	}

	quizzes := r.Group("/quizzes")
	{
		quizzes.PUT("/:courseId/:levelId/:moduleId", c.quiz.UpsertQuiz)
		quizzes.DELETE("/:courseId/:levelId/:moduleId", c.quiz.DeleteQuiz)
	}

	r.POST("/messages", c.message.CreateMessage)
	r.POST("/uploads", c.upload.Upload)
}
