package domain

import (
	"github.com/shopspring/decimal"
)

// Difficulty is the tier requested from the question source.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// NextDifficulty escalates one tier and saturates at hard.
func NextDifficulty(d Difficulty) Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// Label is the Portuguese name used in prompts.
func (d Difficulty) Label() string {
	switch d {
	case DifficultyEasy:
		return "Fácil"
	case DifficultyMedium:
		return "Médio"
	case DifficultyHard:
		return "Difícil"
	}
	return string(d)
}

// TopicMode selects what the questions are about.
type TopicMode string

const (
	TopicGeneral  TopicMode = "general"
	TopicBook     TopicMode = "book"
	TopicHistory  TopicMode = "history"
	TopicSpecific TopicMode = "specific"
)

// QuizFormat is the answer format of every question in a quiz.
type QuizFormat string

const (
	FormatMultipleChoice QuizFormat = "multiple_choice"
	FormatTrueFalse      QuizFormat = "true_false"
	FormatOpenEnded      QuizFormat = "open_ended"
)

// HintType is a kind of help a player may request.
type HintType string

const (
	HintStandard HintType = "standard"
	HintAskAI    HintType = "ask_ai"
)

// TrueFalseOptions is the fixed option pair of true/false questions.
var TrueFalseOptions = []string{"Verdadeiro", "Falso"}

// VoiceConfig controls read-aloud narration.
type VoiceConfig struct {
	Enabled  bool    `json:"enabled" yaml:"enabled"`
	AutoRead bool    `json:"autoRead" yaml:"auto_read"`
	Engine   string  `json:"engine" yaml:"engine"` // "browser" or "gemini"
	Gender   string  `json:"gender" yaml:"gender"` // "female" or "male"
	Rate     float64 `json:"rate" yaml:"rate"`
	Volume   float64 `json:"volume" yaml:"volume"`
}

const (
	EngineBrowser = "browser"
	EngineGemini  = "gemini"
)

// QuizConfig holds the parameters of one generation request. It is kept
// verbatim for "play again".
type QuizConfig struct {
	Mode              TopicMode   `json:"mode" yaml:"mode"`
	Book              string      `json:"book,omitempty" yaml:"book,omitempty"`
	SpecificTopic     string      `json:"specificTopic,omitempty" yaml:"specific_topic,omitempty"`
	Difficulty        Difficulty  `json:"difficulty" yaml:"difficulty"`
	Temperature       float64     `json:"temperature" yaml:"temperature"`
	Format            QuizFormat  `json:"quizFormat" yaml:"format"`
	Count             int         `json:"count" yaml:"count"`
	TimeLimit         int         `json:"timeLimit" yaml:"time_limit"` // seconds per question
	EnableTimer       bool        `json:"enableTimer" yaml:"enable_timer"`
	EnableTimerSound  bool        `json:"enableTimerSound" yaml:"enable_timer_sound"`
	MaxHints          int         `json:"maxHints" yaml:"max_hints"` // -1 means unlimited
	HintTypes         []HintType  `json:"hintTypes" yaml:"hint_types"`
	IsTeamMode        bool        `json:"isTeamMode" yaml:"team_mode"`
	Teams             []string    `json:"teams" yaml:"teams"`
	QuestionsPerRound int         `json:"questionsPerRound" yaml:"questions_per_round"`
	Voice             VoiceConfig `json:"tts" yaml:"tts"`

	// AvoidQuestions is filled by the service from recently archived
	// quizzes; clients never set it.
	AvoidQuestions []string `json:"-" yaml:"-"`
}

// AllowsHint reports whether the configured hint kinds include h.
func (c QuizConfig) AllowsHint(h HintType) bool {
	for _, t := range c.HintTypes {
		if t == h {
			return true
		}
	}
	return false
}

// TopicKey identifies the topic for archive lookups.
func (c QuizConfig) TopicKey() string {
	switch c.Mode {
	case TopicBook:
		return string(c.Mode) + ":" + c.Book
	case TopicSpecific:
		return string(c.Mode) + ":" + c.SpecificTopic
	}
	return string(c.Mode)
}

// Question is one generated quiz record. It is read-only once created;
// skip and void replace it as a whole.
type Question struct {
	ID                 string   `json:"id" yaml:"id"`
	Question           string   `json:"question" yaml:"question"`
	Options            []string `json:"options" yaml:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" yaml:"correct_answer_index"`
	CorrectAnswerText  string   `json:"correctAnswerText,omitempty" yaml:"correct_answer_text,omitempty"`
	Reference          string   `json:"reference" yaml:"reference"`
	Hint               string   `json:"hint" yaml:"hint"`
	Explanation        string   `json:"explanation" yaml:"explanation"`
}

// CanonicalAnswer is the text of the correct answer in any format.
func (q Question) CanonicalAnswer() string {
	if q.CorrectAnswerText != "" {
		return q.CorrectAnswerText
	}
	if q.CorrectAnswerIndex >= 0 && q.CorrectAnswerIndex < len(q.Options) {
		return q.Options[q.CorrectAnswerIndex]
	}
	return ""
}

// GeneratedQuiz is the result of a generation request.
type GeneratedQuiz struct {
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
	Keywords  []string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Team accumulates the results of one player group. Solo play uses one
// synthetic team.
type Team struct {
	ID           string
	Name         string
	Score        decimal.Decimal
	CorrectCount int
	WrongCount   int
	HintsUsed    int
}

// TeamView is the JSON-friendly projection of a Team.
type TeamView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	CorrectCount int     `json:"correctCount"`
	WrongCount   int     `json:"wrongCount"`
	HintsUsed    int     `json:"hintsUsed"`
}

func (t Team) View() TeamView {
	return TeamView{
		ID:           t.ID,
		Name:         t.Name,
		Score:        t.Score.InexactFloat64(),
		CorrectCount: t.CorrectCount,
		WrongCount:   t.WrongCount,
		HintsUsed:    t.HintsUsed,
	}
}

// CorrectThreshold is the grading score above which an answer counts as correct.
const CorrectThreshold = 0.6

// Evaluation is the grading result of a free-text answer.
type Evaluation struct {
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
	IsCorrect bool    `json:"isCorrect"`
}
