package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"studyplan/backend/internal/draft"
	apperrors "studyplan/backend/internal/errors"
	"studyplan/backend/internal/model"
	"studyplan/backend/internal/repository"
	"studyplan/backend/internal/timer"
)

const timerDraftKey = "timer"

// TimerService drives the pure timer machine and executes its effects.
// Every transition runs inside one transaction over the durable state
// row; effect failures are downgraded per the error policy (session
// record failure becomes a warning, points failure is silent).
type TimerService struct {
	timerRepo     *repository.TimerRepository
	sessionRepo   *repository.SessionRepository
	subjectRepo   *repository.SubjectRepository
	drafts        draft.Store
	activity      *ActivityService
	pointsPerHour int
	logger        *slog.Logger
}

func NewTimerService(
	timerRepo *repository.TimerRepository,
	sessionRepo *repository.SessionRepository,
	subjectRepo *repository.SubjectRepository,
	drafts draft.Store,
	activity *ActivityService,
	pointsPerHour int,
	logger *slog.Logger,
) *TimerService {
	return &TimerService{
		timerRepo:     timerRepo,
		sessionRepo:   sessionRepo,
		subjectRepo:   subjectRepo,
		drafts:        drafts,
		activity:      activity,
		pointsPerHour: pointsPerHour,
		logger:        logger,
	}
}

type TimerView struct {
	Phase                  string       `json:"phase"`
	Running                bool         `json:"running"`
	SecondsRemaining       int          `json:"secondsRemaining"`
	SessionsCompletedToday int          `json:"sessionsCompletedToday"`
	Mode                   string       `json:"mode"`
	WorkMinutes            int          `json:"workMinutes"`
	BreakMinutes           int          `json:"breakMinutes"`
	LongBreakMinutes       int          `json:"longBreakMinutes"`
	Draft                  *timer.Draft `json:"draft,omitempty"`
	Version                int          `json:"version"`
	UpdatedAt              time.Time    `json:"updatedAt"`
	ServerTime             time.Time    `json:"serverTime"`
	Warning                string       `json:"warning,omitempty"`
}

type StartSessionInput struct {
	BaseVersion int
	SubjectID   string
	Topic       string
	Notes       string
}

type ChangeModeInput struct {
	BaseVersion      int
	Mode             string
	WorkMinutes      int
	BreakMinutes     int
	LongBreakMinutes int
}

func (s *TimerService) GetState(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	view, apiErr := s.transition(ctx, userID, 0, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		return nil, nil
	})
	return view, apiErr
}

func (s *TimerService) Start(ctx context.Context, userID string, input StartSessionInput) (*TimerView, *apperrors.APIError) {
	if input.SubjectID == "" {
		return nil, apperrors.BadRequest("validation_error", "subjectId is required")
	}

	subject, err := s.subjectRepo.GetByID(ctx, userID, input.SubjectID)
	if err == repository.ErrNotFound {
		return nil, apperrors.BadRequest("validation_error", "subject does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to look up subject")
	}

	return s.transition(ctx, userID, input.BaseVersion, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		effects, startErr := m.Start(timer.Draft{
			SubjectID:   subject.ID,
			SubjectName: subject.Name,
			Topic:       input.Topic,
			Notes:       input.Notes,
		}, time.Now().UTC())
		if startErr != nil {
			return nil, timerError(startErr)
		}
		return effects, nil
	})
}

// Tick applies the seconds reported by the client clock, one at a time,
// so an expiry inside the batch fires its effects at the right point.
func (s *TimerService) Tick(ctx context.Context, userID string, seconds, baseVersion int) (*TimerView, *apperrors.APIError) {
	if seconds < 1 || seconds > 24*60*60 {
		return nil, apperrors.BadRequest("validation_error", "seconds must be between 1 and 86400")
	}

	return s.transition(ctx, userID, baseVersion, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		now := time.Now().UTC()
		var effects []timer.Effect
		for i := 0; i < seconds; i++ {
			effects = append(effects, m.Tick(now)...)
		}
		return effects, nil
	})
}

func (s *TimerService) Pause(ctx context.Context, userID string, baseVersion int) (*TimerView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		return m.Pause(), nil
	})
}

func (s *TimerService) Resume(ctx context.Context, userID string, baseVersion int) (*TimerView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		return m.Resume(), nil
	})
}

func (s *TimerService) Reset(ctx context.Context, userID string, baseVersion int) (*TimerView, *apperrors.APIError) {
	return s.transition(ctx, userID, baseVersion, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		return m.Reset(), nil
	})
}

func (s *TimerService) ChangeMode(ctx context.Context, userID string, input ChangeModeInput) (*TimerView, *apperrors.APIError) {
	cfg := timer.Preset(input.Mode)
	if input.Mode == timer.ModeCustom {
		cfg = timer.Config{
			Mode:             timer.ModeCustom,
			WorkMinutes:      input.WorkMinutes,
			BreakMinutes:     input.BreakMinutes,
			LongBreakMinutes: input.LongBreakMinutes,
		}
	}

	return s.transition(ctx, userID, input.BaseVersion, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		effects, err := m.ChangeMode(cfg)
		if err != nil {
			return nil, timerError(err)
		}
		return effects, nil
	})
}

func (s *TimerService) GetHistory(ctx context.Context, userID string, limit int) ([]model.StudySessionRecord, *apperrors.APIError) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.sessionRepo.List(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to load session history")
	}
	return records, nil
}

// GetResumable returns the mirrored runtime tuple, if any, so the
// client can offer (not force) a one-time resume after a reload.
func (s *TimerService) GetResumable(ctx context.Context, userID string) (*timer.State, *apperrors.APIError) {
	raw, err := s.drafts.Load(ctx, userID, timerDraftKey)
	if err == draft.ErrNotFound {
		return nil, apperrors.NotFound("no_resumable_session", "no resumable timer session")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load draft")
	}

	var state timer.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, apperrors.Internal("stored draft is corrupted")
	}
	return &state, nil
}

// Resume replays the mirrored tuple verbatim, including remaining
// seconds; wall-clock time elapsed while unloaded is not reconciled.
// The mirror is consumed either way.
func (s *TimerService) ResumeFromDraft(ctx context.Context, userID string) (*TimerView, *apperrors.APIError) {
	mirrored, apiErr := s.GetResumable(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	view, apiErr := s.transition(ctx, userID, 0, func(m *timer.Machine) ([]timer.Effect, *apperrors.APIError) {
		*m = *timer.Restore(*mirrored, s.pointsPerHour)
		return nil, nil
	})
	if apiErr != nil {
		return nil, apiErr
	}

	if err := s.drafts.Clear(ctx, userID, timerDraftKey); err != nil {
		s.logger.Warn("timer draft clear failed", "user", userID, "error", err)
	}
	return view, nil
}

// transition is the single entry point every timer operation is
// serialized through: load row, rebuild machine, apply, persist, then
// execute effects once the row is committed.
func (s *TimerService) transition(
	ctx context.Context,
	userID string,
	baseVersion int,
	apply func(*timer.Machine) ([]timer.Effect, *apperrors.APIError),
) (*TimerView, *apperrors.APIError) {
	now := time.Now().UTC()

	sessionsToday, err := s.sessionRepo.CountCompletedSince(ctx, userID, midnightUTC(now))
	if err != nil {
		return nil, apperrors.Internal("failed to count sessions")
	}

	tx, err := s.timerRepo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	row, err := s.timerRepo.GetStateTx(ctx, tx, userID)
	if err == repository.ErrNotFound {
		return nil, apperrors.NotFound("state_not_found", "timer state not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get timer state")
	}

	if apiErr := s.ensureVersion(baseVersion, row, sessionsToday, now); apiErr != nil {
		return nil, apiErr
	}

	before := machineState(row, sessionsToday)
	machine := timer.Restore(before, s.pointsPerHour)

	effects, apiErr := apply(machine)
	if apiErr != nil {
		return nil, apiErr
	}

	if !reflect.DeepEqual(before, machine.State()) {
		applyMachineState(row, machine.State())
		row.Version++
		row.UpdatedAt = now

		if err := s.timerRepo.UpdateStateTx(ctx, tx, row); err != nil {
			return nil, apperrors.Internal("failed to update timer state")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}

	// Effects run only after the commit: the pool carries a single
	// connection and the tx owns it until here, and effect failure must
	// not roll the transition back anyway.
	warning := s.executeEffects(ctx, userID, effects)

	view := toTimerView(row, machine.State(), now)
	view.Warning = warning
	return &view, nil
}

// executeEffects runs the machine's requested side effects in order.
// A failed session-record insert is reported as a non-fatal warning;
// everything else fails silently (logged only). Nothing here rolls the
// phase transition back.
func (s *TimerService) executeEffects(ctx context.Context, userID string, effects []timer.Effect) string {
	warning := ""
	for _, effect := range effects {
		switch e := effect.(type) {
		case timer.EmitSessionRecord:
			record := model.StudySessionRecord{
				ID:              uuid.NewString(),
				UserID:          userID,
				SubjectName:     e.Draft.SubjectName,
				Topic:           e.Draft.Topic,
				DurationMinutes: e.DurationMinutes,
				TimerMode:       e.Mode,
				StartedAt:       e.Draft.StartedAt,
				CompletedAt:     e.CompletedAt,
				Notes:           e.Draft.Notes,
				CreatedAt:       e.CompletedAt,
			}
			if e.Draft.SubjectID != "" {
				subjectID := e.Draft.SubjectID
				record.SubjectID = &subjectID
			}
			if err := s.sessionRepo.Insert(ctx, &record); err != nil {
				s.logger.Error("study session insert failed", "user", userID, "error", err)
				warning = "your completed session could not be saved"
			}
		case timer.EmitActivityPoints:
			s.activity.Emit(ctx, userID, model.ActivityStudySession, e.Points, map[string]interface{}{
				"source": "timer",
			})
		case timer.MirrorState:
			raw, err := json.Marshal(e.State)
			if err != nil {
				s.logger.Warn("timer draft marshal failed", "user", userID, "error", err)
				continue
			}
			if err := s.drafts.Save(ctx, userID, timerDraftKey, raw); err != nil {
				s.logger.Warn("timer draft save failed", "user", userID, "error", err)
			}
		case timer.ClearMirror:
			if err := s.drafts.Clear(ctx, userID, timerDraftKey); err != nil {
				s.logger.Warn("timer draft clear failed", "user", userID, "error", err)
			}
		}
	}
	return warning
}

func (s *TimerService) ensureVersion(baseVersion int, row *model.TimerState, sessionsToday int, now time.Time) *apperrors.APIError {
	if baseVersion <= 0 || baseVersion == row.Version {
		return nil
	}
	view := toTimerView(row, machineState(row, sessionsToday), now)
	return apperrors.Conflict("state_conflict", "timer state changed elsewhere", map[string]interface{}{
		"state": view,
	})
}

func machineState(row *model.TimerState, sessionsToday int) timer.State {
	state := timer.State{
		Phase:                  row.Phase,
		Running:                row.Running,
		SecondsRemaining:       row.SecondsRemaining,
		SessionsCompletedToday: sessionsToday,
		Config: timer.Config{
			Mode:             row.Mode,
			WorkMinutes:      row.WorkMinutes,
			BreakMinutes:     row.BreakMinutes,
			LongBreakMinutes: row.LongBreakMinutes,
		},
	}
	if row.DraftStartedAt != nil {
		state.Draft = &timer.Draft{
			SubjectID:   row.DraftSubjectID,
			SubjectName: row.DraftSubjectName,
			Topic:       row.DraftTopic,
			Notes:       row.DraftNotes,
			StartedAt:   *row.DraftStartedAt,
		}
	}
	return state
}

func applyMachineState(row *model.TimerState, state timer.State) {
	row.Phase = state.Phase
	row.Running = state.Running
	row.SecondsRemaining = state.SecondsRemaining
	row.Mode = state.Config.Mode
	row.WorkMinutes = state.Config.WorkMinutes
	row.BreakMinutes = state.Config.BreakMinutes
	row.LongBreakMinutes = state.Config.LongBreakMinutes

	row.DraftSubjectID = ""
	row.DraftSubjectName = ""
	row.DraftTopic = ""
	row.DraftNotes = ""
	row.DraftStartedAt = nil
	if state.Draft != nil {
		row.DraftSubjectID = state.Draft.SubjectID
		row.DraftSubjectName = state.Draft.SubjectName
		row.DraftTopic = state.Draft.Topic
		row.DraftNotes = state.Draft.Notes
		startedAt := state.Draft.StartedAt
		row.DraftStartedAt = &startedAt
	}
}

func toTimerView(row *model.TimerState, state timer.State, now time.Time) TimerView {
	return TimerView{
		Phase:                  state.Phase,
		Running:                state.Running,
		SecondsRemaining:       state.SecondsRemaining,
		SessionsCompletedToday: state.SessionsCompletedToday,
		Mode:                   state.Config.Mode,
		WorkMinutes:            state.Config.WorkMinutes,
		BreakMinutes:           state.Config.BreakMinutes,
		LongBreakMinutes:       state.Config.LongBreakMinutes,
		Draft:                  state.Draft,
		Version:                row.Version,
		UpdatedAt:              row.UpdatedAt,
		ServerTime:             now,
	}
}

func timerError(err error) *apperrors.APIError {
	switch err {
	case timer.ErrMissingSubject, timer.ErrMissingTopic, timer.ErrInvalidDurations:
		return apperrors.BadRequest("validation_error", err.Error())
	case timer.ErrInvalidMode:
		return apperrors.BadRequest("invalid_mode", err.Error())
	case timer.ErrNotIdle:
		return apperrors.Conflict("session_in_progress", err.Error(), nil)
	default:
		return apperrors.Internal(err.Error())
	}
}

func midnightUTC(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
