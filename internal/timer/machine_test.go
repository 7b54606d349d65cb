package timer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDraft() Draft {
	return Draft{
		SubjectID:   "subj-1",
		SubjectName: "Mathematics",
		Topic:       "Integrals",
	}
}

func newMachine(t *testing.T, cfg Config) *Machine {
	t.Helper()
	m, err := New(cfg, 10)
	require.NoError(t, err)
	return m
}

func runWorkPhase(t *testing.T, m *Machine, now time.Time) []Effect {
	t.Helper()
	_, err := m.Start(testDraft(), now)
	require.NoError(t, err)

	total := m.State().Config.WorkMinutes * 60
	for i := 0; i < total-1; i++ {
		now = now.Add(time.Second)
		require.Empty(t, collectTerminal(m.Tick(now)), "no record before expiry")
	}
	now = now.Add(time.Second)
	return m.Tick(now)
}

func collectTerminal(effects []Effect) []EmitSessionRecord {
	var records []EmitSessionRecord
	for _, e := range effects {
		if r, ok := e.(EmitSessionRecord); ok {
			records = append(records, r)
		}
	}
	return records
}

func TestStartSetsRemainingFromConfig(t *testing.T) {
	for _, cfg := range []Config{
		Preset(ModePomodoro),
		Preset(ModeLongPomodoro),
		{Mode: ModeCustom, WorkMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 2},
	} {
		m := newMachine(t, cfg)
		_, err := m.Start(testDraft(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, cfg.WorkMinutes*60, m.State().SecondsRemaining, "mode %s", cfg.Mode)
		assert.Equal(t, PhaseWork, m.State().Phase)
		assert.True(t, m.State().Running)
	}
}

func TestStartValidation(t *testing.T) {
	m := newMachine(t, Preset(ModePomodoro))

	noSubject := testDraft()
	noSubject.SubjectID = ""
	_, err := m.Start(noSubject, time.Now())
	assert.ErrorIs(t, err, ErrMissingSubject)

	blankTopic := testDraft()
	blankTopic.Topic = "   "
	_, err = m.Start(blankTopic, time.Now())
	assert.ErrorIs(t, err, ErrMissingTopic)

	// Rejected transitions leave the machine idle.
	assert.Equal(t, PhaseIdle, m.State().Phase)
	assert.Nil(t, m.State().Draft)
}

func TestTickDecrementsByOneAndClampsAtZero(t *testing.T) {
	m := newMachine(t, Config{Mode: ModeCustom, WorkMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 2})
	now := time.Unix(1_700_000_000, 0).UTC()
	_, err := m.Start(testDraft(), now)
	require.NoError(t, err)

	for i := 59; i >= 1; i-- {
		now = now.Add(time.Second)
		m.Tick(now)
		assert.Equal(t, i, m.State().SecondsRemaining)
	}

	now = now.Add(time.Second)
	m.Tick(now)
	// Expired into break, never negative.
	assert.Equal(t, PhaseBreak, m.State().Phase)
	assert.GreaterOrEqual(t, m.State().SecondsRemaining, 0)
}

func TestTickIsNoOpWhilePausedOrIdle(t *testing.T) {
	m := newMachine(t, Preset(ModePomodoro))
	assert.Empty(t, m.Tick(time.Now()))

	now := time.Now()
	_, err := m.Start(testDraft(), now)
	require.NoError(t, err)
	m.Tick(now.Add(time.Second))
	remaining := m.State().SecondsRemaining

	m.Pause()
	m.Tick(now.Add(2 * time.Second))
	m.Tick(now.Add(3 * time.Second))
	assert.Equal(t, remaining, m.State().SecondsRemaining)

	m.Resume()
	m.Tick(now.Add(4 * time.Second))
	assert.Equal(t, remaining-1, m.State().SecondsRemaining)
}

func TestRecordEmittedExactlyOncePerExpiredWorkPhase(t *testing.T) {
	m := newMachine(t, Preset(ModePomodoro))
	start := time.Unix(1_700_000_000, 0).UTC()

	effects := runWorkPhase(t, m, start)
	records := collectTerminal(effects)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "Integrals", record.Draft.Topic)
	assert.Equal(t, 25, record.DurationMinutes)
	assert.Equal(t, start, record.Draft.StartedAt)
	assert.Equal(t, start.Add(1500*time.Second), record.CompletedAt)

	var points *EmitActivityPoints
	for _, e := range effects {
		if p, ok := e.(EmitActivityPoints); ok {
			points = &p
		}
	}
	require.NotNil(t, points)
	// 25 minutes at 10 points per hour, round half up.
	assert.Equal(t, 4, points.Points)

	// Draft consumed, phase advanced.
	assert.Nil(t, m.State().Draft)
	assert.Equal(t, PhaseBreak, m.State().Phase)
	assert.Equal(t, 1, m.State().SessionsCompletedToday)
}

func TestResetDuringWorkEmitsNoRecord(t *testing.T) {
	m := newMachine(t, Preset(ModePomodoro))
	now := time.Now()
	_, err := m.Start(testDraft(), now)
	require.NoError(t, err)
	m.Tick(now.Add(time.Second))

	effects := m.Reset()
	assert.Empty(t, collectTerminal(effects))
	assert.Equal(t, PhaseIdle, m.State().Phase)
	assert.Nil(t, m.State().Draft)
	assert.Equal(t, 25*60, m.State().SecondsRemaining)
}

func TestLongBreakEveryFourthSession(t *testing.T) {
	cfg := Config{Mode: ModeCustom, WorkMinutes: 1, BreakMinutes: 2, LongBreakMinutes: 9}
	m := newMachine(t, cfg)
	now := time.Unix(1_700_000_000, 0).UTC()

	for session := 1; session <= 5; session++ {
		runWorkPhase(t, m, now)

		want := cfg.BreakMinutes * 60
		if session%LongBreakEvery == 0 {
			want = cfg.LongBreakMinutes * 60
		}
		assert.Equal(t, want, m.State().SecondsRemaining, "session %d", session)
		assert.Equal(t, session, m.State().SessionsCompletedToday)

		// Skip the break back to idle.
		for m.State().Phase == PhaseBreak {
			now = now.Add(time.Second)
			m.Tick(now)
		}
		assert.Equal(t, PhaseIdle, m.State().Phase)
	}
}

func TestChangeModeForcesIdleWithNewDurations(t *testing.T) {
	m := newMachine(t, Preset(ModePomodoro))
	_, err := m.Start(testDraft(), time.Now())
	require.NoError(t, err)

	effects, err := m.ChangeMode(Preset(ModeLongPomodoro))
	require.NoError(t, err)
	assert.Empty(t, collectTerminal(effects))
	assert.Equal(t, PhaseIdle, m.State().Phase)
	assert.Equal(t, 50*60, m.State().SecondsRemaining)

	_, err = m.ChangeMode(Config{Mode: ModeCustom, WorkMinutes: 0, BreakMinutes: 5, LongBreakMinutes: 15})
	assert.ErrorIs(t, err, ErrInvalidDurations)
}

func lastMirror(effects []Effect) *MirrorState {
	var mirror *MirrorState
	for _, e := range effects {
		if m, ok := e.(MirrorState); ok {
			mirror = &m
		}
	}
	return mirror
}

func hasClearMirror(effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(ClearMirror); ok {
			return true
		}
	}
	return false
}

func TestRestoredWorkPhaseWithoutDraftDropsToIdle(t *testing.T) {
	m := Restore(State{
		Phase:            PhaseWork,
		Running:          true,
		SecondsRemaining: 1,
		Config:           Preset(ModePomodoro),
	}, 10)

	effects := m.Tick(time.Now())
	assert.Empty(t, collectTerminal(effects), "no record without a draft")
	assert.True(t, hasClearMirror(effects))
	assert.Equal(t, PhaseIdle, m.State().Phase)
	assert.False(t, m.State().Running)
	assert.Equal(t, 25*60, m.State().SecondsRemaining)
}

func TestMirrorFollowsEveryRunningTick(t *testing.T) {
	m := newMachine(t, Config{Mode: ModeCustom, WorkMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 2})
	now := time.Unix(1_700_000_000, 0).UTC()
	runWorkPhase(t, m, now)
	require.Equal(t, PhaseBreak, m.State().Phase)

	// Break ticks keep the mirror current.
	now = now.Add(time.Second)
	effects := m.Tick(now)
	mirror := lastMirror(effects)
	require.NotNil(t, mirror)
	assert.Equal(t, PhaseBreak, mirror.State.Phase)

	// Pausing and resuming during the break update it too.
	mirror = lastMirror(m.Pause())
	require.NotNil(t, mirror)
	assert.False(t, mirror.State.Running)
	mirror = lastMirror(m.Resume())
	require.NotNil(t, mirror)
	assert.True(t, mirror.State.Running)

	// Break expiry drops to idle and clears the mirror.
	var last []Effect
	for m.State().Phase == PhaseBreak {
		now = now.Add(time.Second)
		last = m.Tick(now)
	}
	assert.True(t, hasClearMirror(last))
	assert.Equal(t, PhaseIdle, m.State().Phase)
}

func TestStateRoundTrip(t *testing.T) {
	m := newMachine(t, Preset(ModeLongPomodoro))
	now := time.Unix(1_700_000_000, 0).UTC()
	_, err := m.Start(testDraft(), now)
	require.NoError(t, err)
	for i := 0; i < 90; i++ {
		now = now.Add(time.Second)
		m.Tick(now)
	}
	m.Pause()

	raw, err := json.Marshal(m.State())
	require.NoError(t, err)

	var restored State
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, m.State(), restored)

	// Restore replays the tuple verbatim, regardless of wall-clock time.
	replayed := Restore(restored, 10)
	assert.Equal(t, m.State(), replayed.State())
}
