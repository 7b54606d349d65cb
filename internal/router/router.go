package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyplan/backend/internal/handler"
	"studyplan/backend/internal/middleware"
	"studyplan/backend/internal/service"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Timer      *handler.TimerHandler
	Subject    *handler.SubjectHandler
	Question   *handler.QuestionHandler
	Exam       *handler.ExamHandler
	Flashcard  *handler.FlashcardHandler
	Group      *handler.GroupHandler
	Generation *handler.GenerationHandler
}

func New(authService *service.AuthService, h Handlers, corsOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.Auth(authService))

	timer := authed.Group("/timer")
	timer.GET("/state", h.Timer.GetState)
	timer.POST("/start", h.Timer.Start)
	timer.POST("/tick", h.Timer.Tick)
	timer.POST("/pause", h.Timer.Pause)
	timer.POST("/resume", h.Timer.Resume)
	timer.POST("/reset", h.Timer.Reset)
	timer.POST("/mode", h.Timer.ChangeMode)
	timer.GET("/history", h.Timer.GetHistory)
	timer.GET("/resumable", h.Timer.GetResumable)
	timer.POST("/resumable/resume", h.Timer.Resurrect)

	subjects := authed.Group("/subjects")
	subjects.POST("", h.Subject.Create)
	subjects.GET("", h.Subject.List)
	subjects.PUT("/:id", h.Subject.Update)
	subjects.DELETE("/:id", h.Subject.Delete)

	questions := authed.Group("/questions")
	questions.POST("", h.Question.Create)
	questions.GET("", h.Question.List)
	questions.PUT("/:id", h.Question.Update)
	questions.DELETE("/:id", h.Question.Delete)
	questions.POST("/:id/answer", h.Question.Answer)

	exams := authed.Group("/exams")
	exams.POST("", h.Exam.Start)
	exams.GET("", h.Exam.List)
	exams.GET("/:id", h.Exam.Get)
	exams.POST("/:id/answer", h.Exam.Answer)
	exams.POST("/:id/finish", h.Exam.Finish)

	flashcards := authed.Group("/flashcards")
	flashcards.POST("", h.Flashcard.Create)
	flashcards.GET("", h.Flashcard.List)
	flashcards.PUT("/:id", h.Flashcard.Update)
	flashcards.DELETE("/:id", h.Flashcard.Delete)
	flashcards.GET("/review", h.Flashcard.StartReview)
	flashcards.POST("/:id/grade", h.Flashcard.Grade)
	flashcards.POST("/reset-stats", h.Flashcard.ResetStats)

	groups := authed.Group("/groups")
	groups.POST("", h.Group.Create)
	groups.GET("", h.Group.List)
	groups.POST("/join", h.Group.Join)
	groups.GET("/:id/leaderboard", h.Group.Leaderboard)

	generate := authed.Group("/generate")
	generate.POST("/questions", h.Generation.GenerateQuestions)
	generate.POST("/flashcards", h.Generation.GenerateFlashcards)

	return engine
}
