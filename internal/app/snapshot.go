package app

import (
	"sort"
	"time"

	"bible-quiz-service/internal/domain"
)

// Snapshot is an immutable view of a session. Version increases with every
// accepted change.
type Snapshot struct {
	ID             string                              `json:"id"`
	Version        int64                               `json:"version"`
	Phase          domain.Phase                        `json:"phase"`
	Reviewing      bool                                `json:"reviewing"`
	ReviewIndex    int                                 `json:"reviewIndex"`
	Config         *domain.QuizConfig                  `json:"config,omitempty"`
	Title          string                              `json:"title,omitempty"`
	Questions      []domain.Question                   `json:"questions,omitempty"`
	Attempts       []domain.Attempt                    `json:"attempts,omitempty"`
	Voided         []int                               `json:"voided"`
	CurrentIndex   int                                 `json:"currentQuestionIndex"`
	CurrentTeam    int                                 `json:"currentTeamIndex"`
	Round          int                                 `json:"currentRound"`
	Teams          []domain.TeamView                   `json:"teams"`
	HintsRemaining int                                 `json:"hintsRemaining"`
	HintRevealed   bool                                `json:"hintRevealed"`
	AskAnswer      string                              `json:"askAnswer,omitempty"`
	Countdown      int                                 `json:"countdown"`
	TimeLeft       int                                 `json:"timeLeft"`
	Cooldown       int                                 `json:"cooldownTime"`
	Operations     map[domain.Operation]domain.OpState `json:"operations"`
	Error          string                              `json:"error,omitempty"`
	Narration      bool                                `json:"narration"`
	Sound          bool                                `json:"sound"`
	CreatedAt      time.Time                           `json:"createdAt"`
	UpdatedAt      time.Time                           `json:"updatedAt"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:             s.id,
		Version:        s.version,
		Phase:          s.phase,
		Reviewing:      s.reviewing,
		ReviewIndex:    s.reviewIndex,
		Title:          s.title,
		Voided:         make([]int, 0, len(s.voided)),
		CurrentIndex:   s.currentIndex,
		CurrentTeam:    s.currentTeam,
		Round:          s.round,
		Teams:          make([]domain.TeamView, 0, len(s.teams)),
		HintsRemaining: s.hintsRemaining,
		AskAnswer:      s.askAnswer,
		Countdown:      s.countdown,
		TimeLeft:       s.timeLeft,
		Cooldown:       s.cooldown,
		Operations:     make(map[domain.Operation]domain.OpState, len(s.ops)),
		Error:          s.lastError,
		Narration:      s.prefs.NarrationEnabled,
		Sound:          s.prefs.SoundEnabled,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.deps.Clock.Now(),
	}

	if s.config != nil {
		cfg := *s.config
		cfg.Teams = append([]string(nil), s.config.Teams...)
		cfg.HintTypes = append([]domain.HintType(nil), s.config.HintTypes...)
		snap.Config = &cfg
	}
	if s.questions != nil {
		snap.Questions = make([]domain.Question, len(s.questions))
		for i, q := range s.questions {
			q.Options = append([]string(nil), q.Options...)
			snap.Questions[i] = q
		}
		snap.Attempts = make([]domain.Attempt, len(s.attempts))
		for i, a := range s.attempts {
			if a.Selected != nil {
				sel := *a.Selected
				a.Selected = &sel
			}
			snap.Attempts[i] = a
		}
		if q, ok := s.currentQuestionLocked(); ok {
			snap.HintRevealed = s.hintCharged == q.ID
		}
	}
	for idx := range s.voided {
		snap.Voided = append(snap.Voided, idx)
	}
	sort.Ints(snap.Voided)
	for _, t := range s.teams {
		snap.Teams = append(snap.Teams, t.View())
	}
	for op, st := range s.ops {
		snap.Operations[op] = st
	}
	return snap
}

// CurrentQuestion returns the question under play, if any.
func (snap Snapshot) CurrentQuestion() (domain.Question, bool) {
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Questions) {
		return domain.Question{}, false
	}
	return snap.Questions[snap.CurrentIndex], true
}
