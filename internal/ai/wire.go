package ai

import "google.golang.org/genai"

// Response schemas sent with structured generation requests.

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

var questionProperties = map[string]*genai.Schema{
	"id":       str("Um ID único simples, ex: q1"),
	"question": str(""),
	"options": {
		Type:        genai.TypeArray,
		Items:       str(""),
		Description: "Lista de opções (2 ou 4 dependendo do formato, vazia para Resposta Livre)",
	},
	"correctAnswerIndex": {Type: genai.TypeInteger, Description: "Índice base zero ou -1"},
	"correctAnswerText":  str("Texto da resposta correta para Resposta Livre"),
	"reference":          str("Texto base ou publicação fonte para prova"),
	"explanation":        str("Justificativa lógica ou bíblica da resposta correta"),
	"hint":               str("Pequena ajuda amigável para raciocinar sobre a resposta"),
}

var questionRequired = []string{"id", "question", "options", "correctAnswerIndex", "reference", "explanation", "hint"}

var questionSchema = &genai.Schema{
	Type:       genai.TypeObject,
	Properties: questionProperties,
	Required:   questionRequired,
}

var quizSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":     str("Um título criativo para o quiz baseado no tema"),
		"questions": {Type: genai.TypeArray, Items: questionSchema},
	},
	Required: []string{"title", "questions"},
}

var evaluationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":     {Type: genai.TypeNumber, Description: "0.0 a 1.0"},
		"feedback":  str("Explicação curta"),
		"isCorrect": {Type: genai.TypeBoolean, Description: "True se score > 0.6"},
	},
	Required: []string{"score", "feedback", "isCorrect"},
}
