package ai

import (
	"encoding/json"
	"strings"

	"bible-quiz-service/internal/domain"
)

const (
	askFallback        = "Desculpe, não consegui formular uma resposta agora."
	emptyGradeFeedback = "Erro na avaliação."
	badGradeFeedback   = "Erro ao ler avaliação."
)

// cleanJSON removes markdown code fences around a JSON payload.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// normalizeQuestion repairs the parts of a record the model tends to get
// slightly wrong for the requested format.
func normalizeQuestion(q *domain.Question, format domain.QuizFormat) {
	switch format {
	case domain.FormatTrueFalse:
		if len(q.Options) == 2 {
			q.Options = append([]string(nil), domain.TrueFalseOptions...)
		}
	case domain.FormatOpenEnded:
		if q.Options == nil {
			q.Options = []string{}
		}
		q.CorrectAnswerIndex = -1
	}
}

func parseEvaluation(text string) domain.Evaluation {
	if strings.TrimSpace(text) == "" {
		return domain.Evaluation{Feedback: emptyGradeFeedback}
	}
	var e domain.Evaluation
	if err := json.Unmarshal([]byte(cleanJSON(text)), &e); err != nil {
		return domain.Evaluation{Feedback: badGradeFeedback}
	}
	if e.Score < 0 {
		e.Score = 0
	}
	if e.Score > 1 {
		e.Score = 1
	}
	e.IsCorrect = e.Score > domain.CorrectThreshold
	return e
}
