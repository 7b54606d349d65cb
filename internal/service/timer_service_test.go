package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyplan/backend/internal/db"
	"studyplan/backend/internal/draft"
	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
)

type timerHarness struct {
	svc         *TimerService
	sessionRepo *repository.SessionRepository
	userID      string
	subjectID   string
}

func newTimerHarness(t *testing.T) timerHarness {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	require.NoError(t, db.RunMigrations(database, migrationsDir))

	ctx := context.Background()
	now := time.Now().UTC()

	userRepo := repository.NewUserRepository(database)
	timerRepo := repository.NewTimerRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	subjectRepo := repository.NewSubjectRepository(database)
	groupRepo := repository.NewGroupRepository(database)

	user := model.User{
		ID:           uuid.NewString(),
		Email:        "timer@example.com",
		PasswordHash: "not-a-real-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, userRepo.Create(ctx, &user))
	require.NoError(t, timerRepo.CreateInitialState(ctx, user.ID))

	subject := model.Subject{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      "Physics",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, subjectRepo.Create(ctx, &subject))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	activity := NewActivityService(groupRepo, logger)
	svc := NewTimerService(
		timerRepo, sessionRepo, subjectRepo,
		draft.NewSQLiteStore(database), activity, 10, logger,
	)

	return timerHarness{
		svc:         svc,
		sessionRepo: sessionRepo,
		userID:      user.ID,
		subjectID:   subject.ID,
	}
}

// guarded runs op under a watchdog. The pool behind db.OpenSQLite holds
// a single connection, so any transition that touches the pool while
// its own transaction is still open never returns.
func guarded(t *testing.T, name string, op func() (*TimerView, *apperrors.APIError)) *TimerView {
	t.Helper()

	var view *TimerView
	var apiErr *apperrors.APIError
	done := make(chan struct{})
	go func() {
		defer close(done)
		view, apiErr = op()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("%s did not return within 10s", name)
	}
	require.Nil(t, apiErr, "%s: %+v", name, apiErr)
	return view
}

func TestTransitionsCompleteOnSingleConnectionPool(t *testing.T) {
	h := newTimerHarness(t)
	ctx := context.Background()

	started := guarded(t, "Start", func() (*TimerView, *apperrors.APIError) {
		return h.svc.Start(ctx, h.userID, StartSessionInput{
			BaseVersion: 1,
			SubjectID:   h.subjectID,
			Topic:       "optics",
		})
	})
	assert.Equal(t, "work", started.Phase)
	assert.True(t, started.Running)

	// Ticking through expiry exercises every effect executor: session
	// record insert, activity fan-out, draft save and clear.
	expired := guarded(t, "Tick", func() (*TimerView, *apperrors.APIError) {
		return h.svc.Tick(ctx, h.userID, started.WorkMinutes*60, 0)
	})
	assert.Equal(t, "break", expired.Phase)
	assert.Equal(t, 1, expired.SessionsCompletedToday)
	assert.Empty(t, expired.Warning)

	records, err := h.sessionRepo.List(ctx, h.userID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "optics", records[0].Topic)

	guarded(t, "Pause", func() (*TimerView, *apperrors.APIError) {
		return h.svc.Pause(ctx, h.userID, 0)
	})
	guarded(t, "Reset", func() (*TimerView, *apperrors.APIError) {
		return h.svc.Reset(ctx, h.userID, 0)
	})
}
