package timer

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	ModePomodoro     = "pomodoro"
	ModeLongPomodoro = "long_pomodoro"
	ModeCustom       = "custom"

	PhaseIdle  = "idle"
	PhaseWork  = "work"
	PhaseBreak = "break"

	// Every fourth completed work phase earns the long break.
	LongBreakEvery = 4
)

var (
	ErrMissingSubject   = errors.New("timer: study session requires a subject")
	ErrMissingTopic     = errors.New("timer: study session requires a topic")
	ErrNotIdle          = errors.New("timer: a session is already in progress")
	ErrInvalidMode      = errors.New("timer: mode must be one of pomodoro, long_pomodoro, custom")
	ErrInvalidDurations = errors.New("timer: durations must be positive minutes")
)

type Config struct {
	Mode             string `json:"mode"`
	WorkMinutes      int    `json:"workMinutes"`
	BreakMinutes     int    `json:"breakMinutes"`
	LongBreakMinutes int    `json:"longBreakMinutes"`
}

// Preset returns the built-in durations for a mode. Custom starts from
// the classic numbers and is edited by the caller afterwards.
func Preset(mode string) Config {
	if mode == ModeLongPomodoro {
		return Config{Mode: mode, WorkMinutes: 50, BreakMinutes: 10, LongBreakMinutes: 30}
	}
	return Config{Mode: mode, WorkMinutes: 25, BreakMinutes: 5, LongBreakMinutes: 15}
}

func (c Config) Validate() error {
	if c.Mode != ModePomodoro && c.Mode != ModeLongPomodoro && c.Mode != ModeCustom {
		return ErrInvalidMode
	}
	if c.WorkMinutes <= 0 || c.BreakMinutes <= 0 || c.LongBreakMinutes <= 0 {
		return ErrInvalidDurations
	}
	return nil
}

// Draft is the user-declared study session attached to a work phase.
// It is consumed exactly once, when the work phase expires.
type Draft struct {
	SubjectID   string    `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	Topic       string    `json:"topic"`
	Notes       string    `json:"notes,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
}

type State struct {
	Phase                  string `json:"phase"`
	Running                bool   `json:"running"`
	SecondsRemaining       int    `json:"secondsRemaining"`
	SessionsCompletedToday int    `json:"sessionsCompletedToday"`
	Config                 Config `json:"config"`
	Draft                  *Draft `json:"draft,omitempty"`
}

// Effect is a side effect requested by a transition. The machine never
// performs I/O itself; the caller executes effects in order, and effect
// failure must not roll the transition back.
type Effect interface{ effect() }

// EmitSessionRecord asks the caller to append a durable study session
// row. Issued exactly once per naturally expiring work phase.
type EmitSessionRecord struct {
	Draft           Draft
	DurationMinutes int
	Mode            string
	CompletedAt     time.Time
}

// EmitActivityPoints asks the caller to fan a gamification event out to
// the user's groups. Fire-and-forget.
type EmitActivityPoints struct {
	Points int
}

// MirrorState asks the caller to persist the runtime tuple so a reload
// can offer resumption.
type MirrorState struct {
	State State
}

// ClearMirror asks the caller to drop the persisted runtime tuple.
type ClearMirror struct{}

func (EmitSessionRecord) effect()  {}
func (EmitActivityPoints) effect() {}
func (MirrorState) effect()        {}
func (ClearMirror) effect()        {}

// Machine is the timer state machine. It is not safe for concurrent
// use; callers serialize all transitions through a single entry point.
type Machine struct {
	state         State
	pointsPerHour int
}

func New(cfg Config, pointsPerHour int) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{
		state: State{
			Phase:            PhaseIdle,
			SecondsRemaining: cfg.WorkMinutes * 60,
			Config:           cfg,
		},
		pointsPerHour: pointsPerHour,
	}, nil
}

// Restore rebuilds a machine from a persisted state tuple verbatim.
// Elapsed wall-clock time while the tuple sat in storage is not
// reconciled against SecondsRemaining.
func Restore(state State, pointsPerHour int) *Machine {
	if state.Draft != nil {
		draft := *state.Draft
		state.Draft = &draft
	}
	return &Machine{state: state, pointsPerHour: pointsPerHour}
}

func (m *Machine) State() State {
	state := m.state
	if state.Draft != nil {
		draft := *state.Draft
		state.Draft = &draft
	}
	return state
}

// Start begins a work phase. It rejects the transition, leaving the
// machine untouched, unless the draft carries a subject and a non-empty
// topic.
func (m *Machine) Start(draft Draft, now time.Time) ([]Effect, error) {
	if m.state.Phase != PhaseIdle {
		return nil, ErrNotIdle
	}
	if draft.SubjectID == "" || draft.SubjectName == "" {
		return nil, ErrMissingSubject
	}
	if strings.TrimSpace(draft.Topic) == "" {
		return nil, ErrMissingTopic
	}

	draft.Topic = strings.TrimSpace(draft.Topic)
	draft.StartedAt = now

	m.state.Phase = PhaseWork
	m.state.Running = true
	m.state.SecondsRemaining = m.state.Config.WorkMinutes * 60
	m.state.Draft = &draft

	return []Effect{MirrorState{State: m.State()}}, nil
}

// Tick consumes one elapsed second. It is a no-op while idle or paused.
func (m *Machine) Tick(now time.Time) []Effect {
	if m.state.Phase == PhaseIdle || !m.state.Running {
		return nil
	}

	if m.state.SecondsRemaining > 0 {
		m.state.SecondsRemaining--
	}
	if m.state.SecondsRemaining == 0 {
		return m.expire(now)
	}
	return []Effect{MirrorState{State: m.State()}}
}

func (m *Machine) expire(now time.Time) []Effect {
	if m.state.Phase == PhaseBreak {
		// The prior draft was consumed, so the next work phase needs a
		// fresh one; drop back to idle and wait for the caller.
		m.state.Phase = PhaseIdle
		m.state.Running = false
		m.state.SecondsRemaining = m.state.Config.WorkMinutes * 60
		return []Effect{ClearMirror{}}
	}

	if m.state.Draft == nil {
		// A work tuple with no draft has no session to record; treat it
		// as corrupted and drop to idle.
		m.state.Phase = PhaseIdle
		m.state.Running = false
		m.state.SecondsRemaining = m.state.Config.WorkMinutes * 60
		return []Effect{ClearMirror{}}
	}

	draft := *m.state.Draft
	duration := int(math.Round(now.Sub(draft.StartedAt).Minutes()))
	if duration < 0 {
		duration = 0
	}

	m.state.SessionsCompletedToday++

	breakMinutes := m.state.Config.BreakMinutes
	if m.state.SessionsCompletedToday%LongBreakEvery == 0 {
		breakMinutes = m.state.Config.LongBreakMinutes
	}

	m.state.Phase = PhaseBreak
	m.state.SecondsRemaining = breakMinutes * 60
	m.state.Draft = nil

	points := int(math.Round(float64(duration) / 60.0 * float64(m.pointsPerHour)))

	return []Effect{
		EmitSessionRecord{
			Draft:           draft,
			DurationMinutes: duration,
			Mode:            m.state.Config.Mode,
			CompletedAt:     now,
		},
		EmitActivityPoints{Points: points},
		ClearMirror{},
	}
}

// Pause stops the tick decrement without touching phase or remaining
// seconds.
func (m *Machine) Pause() []Effect {
	if m.state.Phase == PhaseIdle || !m.state.Running {
		return nil
	}
	m.state.Running = false
	return []Effect{MirrorState{State: m.State()}}
}

func (m *Machine) Resume() []Effect {
	if m.state.Phase == PhaseIdle || m.state.Running {
		return nil
	}
	m.state.Running = true
	return []Effect{MirrorState{State: m.State()}}
}

// Reset discards any in-flight draft and runtime state unconditionally.
// A non-expired session is simply lost; no record is emitted.
func (m *Machine) Reset() []Effect {
	m.state.Phase = PhaseIdle
	m.state.Running = false
	m.state.SecondsRemaining = m.state.Config.WorkMinutes * 60
	m.state.Draft = nil
	return []Effect{ClearMirror{}}
}

// ChangeMode swaps the active config and forces idle, recomputing the
// remaining seconds from the new work duration.
func (m *Machine) ChangeMode(cfg Config) ([]Effect, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.state.Config = cfg
	return m.Reset(), nil
}
