package router_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"studyplan/backend/internal/db"
	"studyplan/backend/internal/draft"
	"studyplan/backend/internal/generator"
	"studyplan/backend/internal/handler"
	"studyplan/backend/internal/repository"
	"studyplan/backend/internal/router"
	"studyplan/backend/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type stateEnvelope struct {
	State struct {
		Phase                  string `json:"phase"`
		Running                bool   `json:"running"`
		SecondsRemaining       int    `json:"secondsRemaining"`
		SessionsCompletedToday int    `json:"sessionsCompletedToday"`
		Version                int    `json:"version"`
	} `json:"state"`
}

type historyEnvelope struct {
	Sessions []struct {
		SubjectName     string `json:"subjectName"`
		Topic           string `json:"topic"`
		DurationMinutes int    `json:"durationMinutes"`
	} `json:"sessions"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			State struct {
				Version int `json:"version"`
			} `json:"state"`
		} `json:"details"`
	} `json:"error"`
}

type subjectEnvelope struct {
	Subject struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"subject"`
}

func TestTimerFlowAndConflict(t *testing.T) {
	engine := setupTestEngine(t, "")

	user1 := registerUser(t, engine, "user1@example.com", "123456")
	user2 := registerUser(t, engine, "user2@example.com", "123456")

	subjectID := createSubject(t, engine, user1.Token, "Mathematics")

	state := getState(t, engine, user1.Token)
	if state.State.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", state.State.Version)
	}
	if state.State.Phase != "idle" {
		t.Fatalf("expected idle phase, got %s", state.State.Phase)
	}

	// Start a work phase with the current version.
	status, raw := requestJSON(t, engine, http.MethodPost, "/api/timer/start", user1.Token, map[string]interface{}{
		"baseVersion": state.State.Version,
		"subjectId":   subjectID,
		"topic":       "integrals",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d: %s", status, string(raw))
	}

	var started stateEnvelope
	if err := json.Unmarshal(raw, &started); err != nil {
		t.Fatalf("unmarshal start response: %v", err)
	}
	if started.State.Phase != "work" || !started.State.Running {
		t.Fatalf("expected running work phase, got %+v", started.State)
	}
	if started.State.SecondsRemaining != 25*60 {
		t.Fatalf("expected 1500 seconds remaining, got %d", started.State.SecondsRemaining)
	}

	// Starting without a subject must be rejected.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/start", user1.Token, map[string]interface{}{
		"baseVersion": started.State.Version,
		"topic":       "integrals",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing subject, got %d: %s", status, string(raw))
	}

	// Run the whole work phase in one tick batch. Crossing zero
	// completes the session and rolls into the break.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/tick", user1.Token, map[string]interface{}{
		"seconds": 25 * 60,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on tick, got %d: %s", status, string(raw))
	}

	var afterTick stateEnvelope
	if err := json.Unmarshal(raw, &afterTick); err != nil {
		t.Fatalf("unmarshal tick response: %v", err)
	}
	if afterTick.State.Phase != "break" {
		t.Fatalf("expected break phase after expiry, got %s", afterTick.State.Phase)
	}
	if afterTick.State.SessionsCompletedToday != 1 {
		t.Fatalf("expected one completed session, got %d", afterTick.State.SessionsCompletedToday)
	}

	// Pause with the long-stale version from before the start.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/timer/pause", user1.Token, map[string]int{
		"baseVersion": 1,
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for stale version, got %d: %s", status, string(raw))
	}

	var conflict apiErrorEnvelope
	if err := json.Unmarshal(raw, &conflict); err != nil {
		t.Fatalf("unmarshal conflict response: %v", err)
	}
	if conflict.Error.Code != "state_conflict" {
		t.Fatalf("expected state_conflict, got %s", conflict.Error.Code)
	}
	if conflict.Error.Details.State.Version != afterTick.State.Version {
		t.Fatalf("conflict details should carry the current version %d, got %d",
			afterTick.State.Version, conflict.Error.Details.State.Version)
	}

	// Retry with the version from the conflict details.
	status, _ = requestJSON(t, engine, http.MethodPost, "/api/timer/pause", user1.Token, map[string]int{
		"baseVersion": conflict.Error.Details.State.Version,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on pause retry, got %d", status)
	}

	// History carries the denormalized subject name and duration.
	status, raw = requestJSON(t, engine, http.MethodGet, "/api/timer/history?limit=10", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for history, got %d", status)
	}
	var history historyEnvelope
	if err := json.Unmarshal(raw, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history.Sessions) != 1 {
		t.Fatalf("expected one history record, got %d", len(history.Sessions))
	}
	// Duration is wall-clock from start to expiry; the batched tick ran
	// in well under a minute here.
	if history.Sessions[0].SubjectName != "Mathematics" || history.Sessions[0].Topic != "integrals" {
		t.Fatalf("unexpected history record: %+v", history.Sessions[0])
	}
	if history.Sessions[0].DurationMinutes != 0 {
		t.Fatalf("expected zero wall-clock duration, got %d", history.Sessions[0].DurationMinutes)
	}

	// Other users never see this history.
	status, raw = requestJSON(t, engine, http.MethodGet, "/api/timer/history?limit=10", user2.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for user2 history, got %d", status)
	}
	var otherHistory historyEnvelope
	if err := json.Unmarshal(raw, &otherHistory); err != nil {
		t.Fatalf("unmarshal user2 history: %v", err)
	}
	if len(otherHistory.Sessions) != 0 {
		t.Fatalf("expected no sessions for user2, got %d", len(otherHistory.Sessions))
	}
}

func TestExamFlow(t *testing.T) {
	engine := setupTestEngine(t, "")
	user := registerUser(t, engine, "examinee@example.com", "123456")
	subjectID := createSubject(t, engine, user.Token, "History")

	for _, text := range []string{"When was the treaty signed?", "Who led the expedition?"} {
		status, raw := requestJSON(t, engine, http.MethodPost, "/api/questions", user.Token, map[string]interface{}{
			"subjectId":     subjectID,
			"question":      text,
			"options":       []string{"right answer", "wrong answer", "also wrong"},
			"correctOption": 0,
		})
		if status != http.StatusCreated {
			t.Fatalf("create question failed with %d: %s", status, string(raw))
		}
	}

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/exams", user.Token, map[string]interface{}{
		"count": 2,
	})
	if status != http.StatusCreated {
		t.Fatalf("start exam failed with %d: %s", status, string(raw))
	}

	var examResp struct {
		Exam struct {
			ID        string `json:"id"`
			Questions []struct {
				Question string `json:"question"`
			} `json:"questions"`
			Answers []int `json:"answers"`
		} `json:"exam"`
	}
	if err := json.Unmarshal(raw, &examResp); err != nil {
		t.Fatalf("unmarshal exam: %v", err)
	}
	if len(examResp.Exam.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(examResp.Exam.Questions))
	}
	for i, answer := range examResp.Exam.Answers {
		if answer != -1 {
			t.Fatalf("expected question %d unanswered, got %d", i, answer)
		}
	}

	// Answer only the first question, correctly.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/exams/"+examResp.Exam.ID+"/answer", user.Token, map[string]int{
		"questionIndex": 0,
		"optionIndex":   0,
	})
	if status != http.StatusOK {
		t.Fatalf("answer failed with %d: %s", status, string(raw))
	}

	// Finishing with an unanswered question needs confirmation.
	status, raw = requestJSON(t, engine, http.MethodPost, "/api/exams/"+examResp.Exam.ID+"/finish", user.Token, map[string]bool{
		"confirmUnanswered": false,
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 without confirmation, got %d: %s", status, string(raw))
	}
	var unanswered apiErrorEnvelope
	if err := json.Unmarshal(raw, &unanswered); err != nil {
		t.Fatalf("unmarshal unanswered error: %v", err)
	}
	if unanswered.Error.Code != "unanswered_questions" {
		t.Fatalf("expected unanswered_questions, got %s", unanswered.Error.Code)
	}

	status, raw = requestJSON(t, engine, http.MethodPost, "/api/exams/"+examResp.Exam.ID+"/finish", user.Token, map[string]bool{
		"confirmUnanswered": true,
	})
	if status != http.StatusOK {
		t.Fatalf("finish failed with %d: %s", status, string(raw))
	}

	var result struct {
		Score        int `json:"score"`
		CorrectCount int `json:"correctCount"`
		TotalCount   int `json:"totalCount"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.CorrectCount != 1 || result.TotalCount != 2 || result.Score != 50 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// A finished exam rejects further answers.
	status, _ = requestJSON(t, engine, http.MethodPost, "/api/exams/"+examResp.Exam.ID+"/answer", user.Token, map[string]int{
		"questionIndex": 1,
		"optionIndex":   0,
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 answering a finished exam, got %d", status)
	}
}

func TestFlashcardReviewFeedsLeaderboard(t *testing.T) {
	engine := setupTestEngine(t, "")
	member := registerUser(t, engine, "member@example.com", "123456")
	outsider := registerUser(t, engine, "outsider@example.com", "123456")

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/groups", member.Token, map[string]string{
		"name": "Study Buddies",
	})
	if status != http.StatusCreated {
		t.Fatalf("create group failed with %d: %s", status, string(raw))
	}
	var groupResp struct {
		Group struct {
			ID         string `json:"id"`
			InviteCode string `json:"inviteCode"`
		} `json:"group"`
	}
	if err := json.Unmarshal(raw, &groupResp); err != nil {
		t.Fatalf("unmarshal group: %v", err)
	}
	if groupResp.Group.InviteCode == "" {
		t.Fatal("expected an invite code")
	}

	status, raw = requestJSON(t, engine, http.MethodPost, "/api/flashcards", member.Token, map[string]string{
		"subject": "Spanish",
		"front":   "perro",
		"back":    "dog",
	})
	if status != http.StatusCreated {
		t.Fatalf("create flashcard failed with %d: %s", status, string(raw))
	}
	var cardResp struct {
		Flashcard struct {
			ID string `json:"id"`
		} `json:"flashcard"`
	}
	if err := json.Unmarshal(raw, &cardResp); err != nil {
		t.Fatalf("unmarshal flashcard: %v", err)
	}

	status, raw = requestJSON(t, engine, http.MethodPost, "/api/flashcards/"+cardResp.Flashcard.ID+"/grade", member.Token, map[string]bool{
		"correct": true,
	})
	if status != http.StatusOK {
		t.Fatalf("grade failed with %d: %s", status, string(raw))
	}
	var graded struct {
		Flashcard struct {
			ReviewCount  int `json:"reviewCount"`
			CorrectCount int `json:"correctCount"`
		} `json:"flashcard"`
	}
	if err := json.Unmarshal(raw, &graded); err != nil {
		t.Fatalf("unmarshal graded card: %v", err)
	}
	if graded.Flashcard.ReviewCount != 1 || graded.Flashcard.CorrectCount != 1 {
		t.Fatalf("unexpected review stats: %+v", graded.Flashcard)
	}

	status, raw = requestJSON(t, engine, http.MethodGet, "/api/groups/"+groupResp.Group.ID+"/leaderboard", member.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard failed with %d: %s", status, string(raw))
	}
	var board struct {
		Leaderboard []struct {
			UserID string `json:"userId"`
			Points int    `json:"points"`
		} `json:"leaderboard"`
	}
	if err := json.Unmarshal(raw, &board); err != nil {
		t.Fatalf("unmarshal leaderboard: %v", err)
	}
	if len(board.Leaderboard) != 1 {
		t.Fatalf("expected one leaderboard entry, got %d", len(board.Leaderboard))
	}
	if board.Leaderboard[0].UserID != member.User.ID || board.Leaderboard[0].Points != 1 {
		t.Fatalf("unexpected leaderboard entry: %+v", board.Leaderboard[0])
	}

	// Non-members cannot read the leaderboard.
	status, _ = requestJSON(t, engine, http.MethodGet, "/api/groups/"+groupResp.Group.ID+"/leaderboard", outsider.Token, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", status)
	}
}

func TestGenerateQuestions(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/questions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"questions":[
			{"question":"What is Go?","options":["a language","a board game"],"correctAnswerIndex":0,"explanation":"both, really"},
			{"question":"What is a goroutine?","options":["a thread","a lightweight routine"],"correctAnswerIndex":1,"explanation":""}
		]}`))
	}))
	defer upstream.Close()

	engine := setupTestEngine(t, upstream.URL)
	user := registerUser(t, engine, "generator@example.com", "123456")
	subjectID := createSubject(t, engine, user.Token, "Programming")

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/generate/questions", user.Token, map[string]interface{}{
		"documentText": "Go is a statically typed language with goroutines.",
		"subjectId":    subjectID,
		"count":        2,
	})
	if status != http.StatusCreated {
		t.Fatalf("generate failed with %d: %s", status, string(raw))
	}

	var generated struct {
		Questions []struct {
			Source      string `json:"source"`
			SubjectName string `json:"subjectName"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &generated); err != nil {
		t.Fatalf("unmarshal generated questions: %v", err)
	}
	if len(generated.Questions) != 2 {
		t.Fatalf("expected 2 generated questions, got %d", len(generated.Questions))
	}
	for _, q := range generated.Questions {
		if q.Source != "generated" || q.SubjectName != "Programming" {
			t.Fatalf("unexpected generated question: %+v", q)
		}
	}

	// Generated questions land in the pool.
	status, raw = requestJSON(t, engine, http.MethodGet, "/api/questions", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("list questions failed with %d", status)
	}
	var pool struct {
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &pool); err != nil {
		t.Fatalf("unmarshal pool: %v", err)
	}
	if len(pool.Questions) != 2 {
		t.Fatalf("expected 2 pool questions, got %d", len(pool.Questions))
	}
}

func TestGenerateFailsOnMalformedUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"questions":[{"question":"only one option","options":["alone"],"correctAnswerIndex":0}]}`))
	}))
	defer upstream.Close()

	engine := setupTestEngine(t, upstream.URL)
	user := registerUser(t, engine, "badgen@example.com", "123456")
	subjectID := createSubject(t, engine, user.Token, "Biology")

	status, raw := requestJSON(t, engine, http.MethodPost, "/api/generate/questions", user.Token, map[string]interface{}{
		"documentText": "Cells divide.",
		"subjectId":    subjectID,
		"count":        1,
	})
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502 for malformed upstream, got %d: %s", status, string(raw))
	}
	var failure apiErrorEnvelope
	if err := json.Unmarshal(raw, &failure); err != nil {
		t.Fatalf("unmarshal failure: %v", err)
	}
	if failure.Error.Code != "generation_failed" {
		t.Fatalf("expected generation_failed, got %s", failure.Error.Code)
	}

	// Nothing was inserted.
	status, raw = requestJSON(t, engine, http.MethodGet, "/api/questions", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("list questions failed with %d", status)
	}
	var pool struct {
		Questions []struct{} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &pool); err != nil {
		t.Fatalf("unmarshal pool: %v", err)
	}
	if len(pool.Questions) != 0 {
		t.Fatalf("expected empty pool, got %d questions", len(pool.Questions))
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t, "")
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestEngine(t *testing.T, generatorURL string) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	userRepo := repository.NewUserRepository(database)
	timerRepo := repository.NewTimerRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	subjectRepo := repository.NewSubjectRepository(database)
	questionRepo := repository.NewQuestionRepository(database)
	examRepo := repository.NewExamRepository(database)
	flashcardRepo := repository.NewFlashcardRepository(database)
	groupRepo := repository.NewGroupRepository(database)
	draftStore := draft.NewSQLiteStore(database)

	authService := service.NewAuthService(userRepo, timerRepo, "test-secret", 24*time.Hour)
	activityService := service.NewActivityService(groupRepo, logger)
	timerService := service.NewTimerService(timerRepo, sessionRepo, subjectRepo, draftStore, activityService, 10, logger)
	subjectService := service.NewSubjectService(subjectRepo)
	questionService := service.NewQuestionService(questionRepo, subjectRepo)
	examService := service.NewExamService(examRepo, questionRepo, activityService, 5, logger)
	flashcardService := service.NewFlashcardService(flashcardRepo, activityService, 1, logger)
	groupService := service.NewGroupService(groupRepo)
	generationService := service.NewGenerationService(
		generator.NewClient(generatorURL), questionRepo, flashcardRepo, subjectRepo, logger,
	)

	return router.New(authService, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Timer:      handler.NewTimerHandler(timerService),
		Subject:    handler.NewSubjectHandler(subjectService),
		Question:   handler.NewQuestionHandler(questionService),
		Exam:       handler.NewExamHandler(examService),
		Flashcard:  handler.NewFlashcardHandler(flashcardService),
		Group:      handler.NewGroupHandler(groupService, activityService),
		Generation: handler.NewGenerationHandler(generationService),
	}, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func createSubject(t *testing.T, server http.Handler, token, name string) string {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/subjects", token, map[string]string{
		"name": name,
	})
	if status != http.StatusCreated {
		t.Fatalf("create subject failed with status %d: %s", status, string(body))
	}
	var resp subjectEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal subject response: %v", err)
	}
	return resp.Subject.ID
}

func getState(t *testing.T, server http.Handler, token string) stateEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/timer/state", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get state failed with status %d: %s", status, string(body))
	}
	var stateResp stateEnvelope
	if err := json.Unmarshal(body, &stateResp); err != nil {
		t.Fatalf("unmarshal state response: %v", err)
	}
	return stateResp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
