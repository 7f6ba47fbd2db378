package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/preferences"
)

// recentQuestionLimit bounds how many archived question texts are sent back
// to the source as "do not repeat".
const recentQuestionLimit = 30

// SessionRepository abstracts how quiz sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Add(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
	List() []*Session
}

// QuizArchive keeps generated quizzes so later runs can avoid repeats.
type QuizArchive interface {
	SaveQuiz(ctx context.Context, quiz domain.ArchivedQuiz) error
	RecentQuestions(ctx context.Context, topicKey string, limit int) ([]string, error)
}

// QuizService hosts sessions and ties them to preferences and the archive.
type QuizService struct {
	sessions SessionRepository
	archive  QuizArchive
	prefs    *preferences.Manager
	deps     Dependencies
}

// NewQuizService builds the service. archive and prefs may be nil.
func NewQuizService(store SessionRepository, archive QuizArchive, prefs *preferences.Manager, deps Dependencies) *QuizService {
	return &QuizService{sessions: store, archive: archive, prefs: prefs, deps: deps}
}

// Create starts an empty session in setup for clientID.
func (s *QuizService) Create(ctx context.Context, clientID string) *Session {
	session := NewSession(uuid.NewString(), s.deps)
	session.clientID = clientID
	if s.prefs != nil && clientID != "" {
		settings, err := s.prefs.Load(ctx, clientID)
		if err != nil {
			slog.WarnContext(ctx, "app: load preferences failed", "client", clientID, "error", err)
		}
		session.ApplySettings(ctx, settings)
	}
	s.sessions.Add(session)
	slog.InfoContext(ctx, "app: session created", "session", session.ID())
	return session
}

// Session looks up a live session.
func (s *QuizService) Session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Remove resets and drops a session.
func (s *QuizService) Remove(ctx context.Context, id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.Reset(ctx)
	session.closeSubscribers()
	s.sessions.Delete(id)
}

// Generate runs a generation for the session, steering the source away from
// recently archived questions of the same topic.
func (s *QuizService) Generate(ctx context.Context, id string, cfg domain.QuizConfig) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	cfg.Normalize()
	quiz, err := session.generate(ctx, cfg, s.recentQuestions(ctx, cfg))
	if err != nil {
		return err
	}
	s.archiveQuiz(ctx, id, cfg, quiz)
	return nil
}

// Restart replays the session's last configuration.
func (s *QuizService) Restart(ctx context.Context, id string) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	cfg := session.Snapshot().Config
	if cfg == nil {
		return domain.ErrInvalidPhase
	}
	return s.Generate(ctx, id, *cfg)
}

// UpdatePreferences persists settings and applies them to the client's live sessions.
func (s *QuizService) UpdatePreferences(ctx context.Context, clientID string, settings preferences.Settings) error {
	if s.prefs != nil {
		if err := s.prefs.Update(ctx, clientID, settings); err != nil {
			return err
		}
	}
	for _, session := range s.sessions.List() {
		if session.ClientID() == clientID {
			session.ApplySettings(ctx, settings)
		}
	}
	return nil
}

// Preferences returns the stored settings of clientID.
func (s *QuizService) Preferences(ctx context.Context, clientID string) (preferences.Settings, error) {
	if s.prefs == nil {
		return preferences.Defaults(), nil
	}
	return s.prefs.Load(ctx, clientID)
}

func (s *QuizService) recentQuestions(ctx context.Context, cfg domain.QuizConfig) []string {
	if s.archive == nil {
		return nil
	}
	recent, err := s.archive.RecentQuestions(ctx, cfg.TopicKey(), recentQuestionLimit)
	if err != nil {
		slog.WarnContext(ctx, "app: load recent questions failed", "topic", cfg.TopicKey(), "error", err)
		return nil
	}
	return recent
}

func (s *QuizService) archiveQuiz(ctx context.Context, id string, cfg domain.QuizConfig, quiz domain.GeneratedQuiz) {
	if s.archive == nil {
		return
	}
	err := s.archive.SaveQuiz(ctx, domain.ArchivedQuiz{
		SessionID: id,
		TopicKey:  cfg.TopicKey(),
		Title:     quiz.Title,
		Config:    cfg,
		Questions: quiz.Questions,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "app: archive quiz failed", "session", id, "error", err)
	}
}

func (s *QuizService) now() time.Time {
	if s.deps.Clock != nil {
		return s.deps.Clock.Now()
	}
	return time.Now()
}
