package main

import (
	"log"
	"log/slog"
	"os"

	"studyplan/backend/internal/config"
	"studyplan/backend/internal/db"
	"studyplan/backend/internal/draft"
	"studyplan/backend/internal/generator"
	"studyplan/backend/internal/handler"
	"studyplan/backend/internal/repository"
	"studyplan/backend/internal/router"
	"studyplan/backend/internal/service"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	timerRepo := repository.NewTimerRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	subjectRepo := repository.NewSubjectRepository(database)
	questionRepo := repository.NewQuestionRepository(database)
	examRepo := repository.NewExamRepository(database)
	flashcardRepo := repository.NewFlashcardRepository(database)
	groupRepo := repository.NewGroupRepository(database)
	draftStore := draft.NewSQLiteStore(database)

	generatorClient := generator.NewClient(cfg.GeneratorURL)

	authService := service.NewAuthService(userRepo, timerRepo, cfg.JWTSecret, cfg.TokenTTL)
	activityService := service.NewActivityService(groupRepo, logger)
	timerService := service.NewTimerService(
		timerRepo, sessionRepo, subjectRepo, draftStore, activityService,
		cfg.PointsPerStudyHour, logger,
	)
	subjectService := service.NewSubjectService(subjectRepo)
	questionService := service.NewQuestionService(questionRepo, subjectRepo)
	examService := service.NewExamService(examRepo, questionRepo, activityService, cfg.PointsPerExam, logger)
	flashcardService := service.NewFlashcardService(flashcardRepo, activityService, cfg.PointsPerCardReview, logger)
	groupService := service.NewGroupService(groupRepo)
	generationService := service.NewGenerationService(generatorClient, questionRepo, flashcardRepo, subjectRepo, logger)

	engine := router.New(authService, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Timer:      handler.NewTimerHandler(timerService),
		Subject:    handler.NewSubjectHandler(subjectService),
		Question:   handler.NewQuestionHandler(questionService),
		Exam:       handler.NewExamHandler(examService),
		Flashcard:  handler.NewFlashcardHandler(flashcardService),
		Group:      handler.NewGroupHandler(groupService, activityService),
		Generation: handler.NewGenerationHandler(generationService),
	}, cfg.CORSOrigins)

	log.Printf("backend listening on :%s", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("run server: %v", err)
	}
}
