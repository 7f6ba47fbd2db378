package domain

import "fmt"

const (
	DefaultTemperature = 0.7
	UnlimitedHints     = -1
)

// Normalize fills defaults the client may leave out.
func (c *QuizConfig) Normalize() {
	if c.QuestionsPerRound == 0 {
		c.QuestionsPerRound = c.Count
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if len(c.HintTypes) == 0 {
		c.HintTypes = []HintType{HintStandard, HintAskAI}
	}
	if c.Voice.Engine == "" {
		c.Voice.Engine = EngineBrowser
	}
	if c.Voice.Rate == 0 {
		c.Voice.Rate = 1
	}
}

// Validate reports the first problem that prevents generation. It wraps
// ErrInvalidConfig.
func (c QuizConfig) Validate() error {
	switch {
	case c.Count < 1:
		return invalid("count must be at least 1")
	case c.QuestionsPerRound < 1:
		return invalid("questionsPerRound must be at least 1")
	case c.IsTeamMode && len(c.Teams) == 0:
		return invalid("team mode needs at least one team")
	case c.MaxHints < UnlimitedHints:
		return invalid("maxHints must be -1 or greater")
	case c.EnableTimer && c.TimeLimit < 1:
		return invalid("timeLimit must be at least 1 second")
	case c.Temperature < 0 || c.Temperature > 1:
		return invalid("temperature must be within [0,1]")
	}

	switch c.Mode {
	case TopicGeneral, TopicHistory:
	case TopicBook:
		if c.Book == "" {
			return invalid("book mode needs a book")
		}
	case TopicSpecific:
		if c.SpecificTopic == "" {
			return invalid("specific mode needs a topic")
		}
	default:
		return invalid("unknown mode %q", c.Mode)
	}

	switch c.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return invalid("unknown difficulty %q", c.Difficulty)
	}

	switch c.Format {
	case FormatMultipleChoice, FormatTrueFalse, FormatOpenEnded:
	default:
		return invalid("unknown format %q", c.Format)
	}

	for _, h := range c.HintTypes {
		if h != HintStandard && h != HintAskAI {
			return invalid("unknown hint type %q", h)
		}
	}

	switch c.Voice.Engine {
	case "", EngineBrowser, EngineGemini:
	default:
		return invalid("unknown narration engine %q", c.Voice.Engine)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// CheckFormat verifies that q has the shape required by format.
func (q Question) CheckFormat(format QuizFormat) error {
	if q.Question == "" {
		return fmt.Errorf("%w: empty question text", ErrMalformedResponse)
	}
	switch format {
	case FormatMultipleChoice:
		if len(q.Options) != 4 || q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex > 3 {
			return fmt.Errorf("%w: multiple choice needs 4 options and an index in [0,3]", ErrMalformedResponse)
		}
	case FormatTrueFalse:
		if len(q.Options) != 2 || q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex > 1 {
			return fmt.Errorf("%w: true/false needs 2 options and an index in {0,1}", ErrMalformedResponse)
		}
	case FormatOpenEnded:
		if len(q.Options) != 0 || q.CorrectAnswerIndex != -1 || q.CorrectAnswerText == "" {
			return fmt.Errorf("%w: open question needs no options, index -1 and a canonical answer", ErrMalformedResponse)
		}
	default:
		return fmt.Errorf("%w: unknown format %q", ErrMalformedResponse, format)
	}
	return nil
}
