package ai

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"bible-quiz-service/internal/domain"
)

const systemInstruction = `Você é um instrutor bíblico experiente, especializado exclusivamente nas publicações oficiais das Testemunhas de Jeová (site jw.org) e na Tradução do Novo Mundo das Escrituras Sagradas (TNM).

DIRETRIZES RÍGIDAS:
1. Fonte Única: Todo conteúdo DEVE ser verificável na TNM ou publicações oficiais (A Sentinela, Despertai!, livros de estudo).
2. Sem Especulação: Não inclua teorias pessoais ou materiais de outras denominações.
3. Precisão Doutrinária: As respostas devem refletir o entendimento ATUAL da organização.
4. Tom: Respeitoso, encorajador, sério e profissional.
5. Formato: Gere estritamente JSON.
6. Idioma: Português (Brasil).
7. Dicas (Hints): As dicas devem ser EXTREMAMENTE CONCISAS e DIRETAS (máximo 1 frase curta). Elas devem ajudar o usuário a lembrar da resposta sem dá-la de bandeja.
8. Explicação (Explanation): Ao justificar a resposta, seja breve, lógico e use o texto bíblico ou o raciocínio da publicação como base.

INSTRUÇÕES DE DIFICULDADE:
- Fácil: Fatos básicos, personagens famosos, textos muito conhecidos.
- Médio: Detalhes de relatos, princípios aplicados, cronologia básica.
- Difícil: Profecias profundas, detalhes menores da Lei, raciocínios doutrinários complexos (ex: tipos e antítipos conforme entendimento atual), contexto histórico específico.`

// hiddenThemes steer GENERAL quizzes toward a different focus on every run.
var hiddenThemes = []string{
	"Foque em profecias menores e seus cumprimentos.",
	"Foque em detalhes geográficos e viagens missionárias.",
	"Foque em mulheres de fé do Antigo e Novo Testamento.",
	"Foque em detalhes da Lei Mosaica e seus princípios.",
	"Foque em ilustrações e parábolas de Jesus menos citadas.",
	"Foque na construção do Tabernáculo e do Templo.",
	"Foque nos Reis de Judá e Israel (bons e maus).",
	"Foque nos Profetas Menores (Oseias a Malaquias).",
	"Foque em qualidades (Fruto do Espírito) e aplicação prática.",
	"Foque em animais, plantas e medidas usadas na Bíblia.",
	"Foque em números bíblicos e cronologia.",
	"Misture tudo, mas dê preferência a personagens 'coadjuvantes' da Bíblia.",
}

func randomTheme() string {
	return hiddenThemes[rand.Intn(len(hiddenThemes))]
}

const historyTopic = "História Moderna das Testemunhas de Jeová e o desenvolvimento da sua organização terrestre. " +
	"IMPORTANTE: NÃO inclua perguntas de história bíblica geral (como reis de Israel, apóstolos ou profetas antigos), " +
	"exceto se for sobre a interpretação profética moderna deles. Foque EXCLUSIVAMENTE em: Datas importantes " +
	"(ex: 1879, 1914, 1919), Congressos históricos, Biografias de irmãos da história moderna (ex: C.T. Russell, " +
	"J.F. Rutherford, N.H. Knorr), Lançamento de publicações importantes, Batalhas jurídicas, Construção de Betéis " +
	"e Expansão da obra mundial. Fonte exclusiva: jw.org (Livro Proclamadores, Anuários, Fé em Ação)."

func topicPrompt(cfg domain.QuizConfig) string {
	switch cfg.Mode {
	case domain.TopicGeneral:
		return "Temas variados sobre a Bíblia e vida cristã (Conhecimento Exato)."
	case domain.TopicHistory:
		return historyTopic
	case domain.TopicSpecific:
		return fmt.Sprintf("Assunto Específico: %q. Crie perguntas EXCLUSIVAMENTE focadas neste tema ou assunto. "+
			"Se o assunto for uma pessoa, lugar ou evento, explore detalhes bíblicos sobre isso.", cfg.SpecificTopic)
	}
	return "Livro bíblico de " + cfg.Book
}

func formatInstruction(format domain.QuizFormat) string {
	switch format {
	case domain.FormatTrueFalse:
		return `FORMATO DAS PERGUNTAS: VERDADEIRO OU FALSO.
- O campo 'question' deve ser uma AFIRMAÇÃO DECLARATIVA (não uma pergunta interrogativa) que pode ser julgada como verdadeira ou falsa.
- O campo 'options' DEVE conter EXATAMENTE duas strings nesta ordem: ["Verdadeiro", "Falso"].
- O campo 'correctAnswerIndex' deve ser 0 (para Verdadeiro) ou 1 (para Falso).`
	case domain.FormatOpenEnded:
		return `FORMATO DAS PERGUNTAS: RESPOSTA LIVRE.
- O campo 'question' deve ser uma pergunta interrogativa clara que exija uma explicação curta ou uma resposta factual direta.
- O campo 'options' deve ser uma lista vazia [].
- O campo 'correctAnswerIndex' deve ser -1.
- O campo 'correctAnswerText' DEVE ser preenchido com a resposta correta e uma breve explicação concisa para servir de gabarito.`
	}
	return `FORMATO DAS PERGUNTAS: MÚLTIPLA ESCOLHA.
- O campo 'question' deve ser uma pergunta interrogativa clara.
- O campo 'options' DEVE conter EXATAMENTE 4 alternativas.
- Apenas uma alternativa deve estar correta.`
}

func quizPrompt(cfg domain.QuizConfig, theme string, seed int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crie um quiz com %d perguntas.\n", cfg.Count)
	fmt.Fprintf(&b, "Tema: %s.\n", topicPrompt(cfg))
	fmt.Fprintf(&b, "Dificuldade: %s.\n", cfg.Difficulty.Label())
	b.WriteString(formatInstruction(cfg.Format))
	b.WriteString("\n\n")
	if cfg.Mode == domain.TopicGeneral {
		fmt.Fprintf(&b, "VARIAÇÃO OBRIGATÓRIA: O foco deste quiz deve ser: %s\n", theme)
	}
	fmt.Fprintf(&b, "Seed de Aleatoriedade: %d\n\n", seed)
	b.WriteString("EVITE CLICHÊS: Não faça perguntas óbvias demais (ex: Quem matou Golias?). Não repita o mesmo personagem no mesmo quiz.\n")
	if len(cfg.AvoidQuestions) > 0 {
		b.WriteString("NÃO REPITA nenhuma destas perguntas já usadas recentemente:\n")
		for _, q := range cfg.AvoidQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	b.WriteString(`
Para cada pergunta:
1. Siga o formato estipulado acima.
2. Forneça uma referência bíblica ou de publicação que prove a resposta (ex: "Salmo 83:18" ou "w22.05 p.10").
3. Forneça uma EXPLICAÇÃO curta (justificativa) de por que a resposta correta é a certa.
4. Forneça uma DICA (hint) CURTA e CONCISA. O próprio sistema deve identificar automaticamente qual o melhor tipo de dica (contexto, palavra-chave, localização, etc) para a pergunta e fornecê-la diretamente.`)
	return b.String()
}

func replacementPrompt(cfg domain.QuizConfig, avoid string) string {
	return fmt.Sprintf(`Gere APENAS UMA pergunta de substituição para um quiz.
Tema: %s.
Dificuldade: %s.
IMPORTANTE: A pergunta NÃO PODE SER igual ou muito parecida com esta: %q.

EVITE CLICHÊS: Busque um detalhe interessante e não óbvio.
%s

Estrutura:
1. Enunciado.
2. Alternativas (vazio se resposta livre).
3. Índice da correta (-1 se livre).
4. Referência.
5. Explicação (Justificativa).
6. Dica CURTA e CONCISA (O sistema escolhe o melhor tipo de dica para o contexto).`,
		topicPrompt(cfg), cfg.Difficulty.Label(), avoid, formatInstruction(cfg.Format))
}

func gradePrompt(question, modelAnswer, userAnswer string) string {
	return fmt.Sprintf(`Aja como um instrutor de quiz bíblico (Testemunhas de Jeová).
Avalie a resposta do usuário comparando-a com a resposta modelo.

Pergunta: %q
Resposta Modelo (Gabarito): %q
Resposta do Usuário: %q

Sua tarefa:
1. Atribua uma pontuação de 0.0 a 1.0 (permita fracionados, ex: 0.5 se estiver parcialmente correto ou incompleto).
2. Forneça um feedback curto e amigável explicando a nota. Se estiver errado, explique o correto suavemente.
3. Seja flexível com ortografia, mas rigoroso com o sentido doutrinário.

Responda em JSON.`, question, modelAnswer, userAnswer)
}

func askPrompt(q domain.Question, query string) string {
	options, _ := json.Marshal(q.Options)
	return fmt.Sprintf(`O usuário está com dúvidas sobre a seguinte questão de um quiz bíblico (Testemunhas de Jeová).
Esta questão refere-se a: %s.

Pergunta: %q
Alternativas: %s
Resposta Correta (NÃO REVELE se o usuário ainda não respondeu, mas se ele estiver contestando, pode explicar): %s
Referência: %s
Justificativa/Explicação: %s

O usuário perguntou: %q

Sua tarefa:
1. Aja como um instrutor amigável e socrático.
2. Responda à dúvida do usuário baseando-se no entendimento oficial da organização.
3. Seja breve (máximo 2 ou 3 frases).
4. Mantenha um tom calmo e educativo.`,
		q.Reference, q.Question, options, q.CanonicalAnswer(), q.Reference, q.Explanation, query)
}
