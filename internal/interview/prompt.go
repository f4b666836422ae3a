// Package interview holds the pure pieces of the interview engine: prompt
// construction and feedback parsing. Nothing here touches the network or the
// store, so every function is directly testable.
package interview

import (
	"fmt"
	"strings"

	"github.com/nextround/backend/internal/providers/llm"
)

// Persona is the interviewer context shared by every prompt variant.
type Persona struct {
	CandidateName string
	Position      string
	Level         string
	Type          string // technical|behavioral
	Technologies  []string
}

func (p Persona) techList() string { return strings.Join(p.Technologies, ", ") }

func (p Persona) instruction() string {
	return fmt.Sprintf(`You are a professional technical interviewer conducting a %s interview with %s for a %s-level %s role.

- Your tone should be formal yet engaging.
- Start by introducing yourself politely as an interviewer.
- Then mention the technologies that the candidate knows: %s.
- After the short introduction, ask a relevant, well-structured technical question based on the candidate's role and skills.
- Keep your question concise and direct.
- Do NOT include your name or the company's name.
- Do NOT provide explanations or answers.
- Only return the next question in plain text (no JSON or formatting).`,
		p.Type, p.CandidateName, p.Level, p.Position, p.techList())
}

// IntroductionTurns builds the prompt for the very first question of a
// session: a one-time self introduction followed by exactly one question.
func IntroductionTurns(p Persona) []llm.Turn {
	return []llm.Turn{
		{Role: llm.RoleUser, Text: p.instruction()},
		{Role: llm.RoleModel, Text: "Start the interview with self intro"},
		{Role: llm.RoleModel, Text: "Only ask the question, just the sentence"},
	}
}

// ContinuationTurns builds the prompt for every question after the first.
// The previous question is included verbatim so the model does not repeat it.
func ContinuationTurns(p Persona, prevQuestion string) []llm.Turn {
	followUp := fmt.Sprintf(`You have already asked the question: "%s", and the candidate has answered it.

Continue the interview by:
- Asking the next relevant technical question based on the candidate's level (%s), position (%s), and skills (%s).
- Your tone should be formal but friendly, as if you're conducting a live mock interview.
- Do NOT repeat previous questions.
- Ask only one question at a time.
- Do NOT provide feedback or suggestions.
- Do NOT explain anything.
- Return only the next question in plain text (no formatting or labels).`,
		prevQuestion, p.Level, p.Position, p.techList())

	return []llm.Turn{
		{Role: llm.RoleUser, Text: p.instruction()},
		{Role: llm.RoleUser, Text: followUp},
	}
}

// DefaultRubric is the canonical STAR-method scoring instruction. The active
// rubric text is a config value; this is its default.
const DefaultRubric = `You are an AI interviewer. I will give you a candidate's answer to a technical question.

- Use the STAR method (Situation, Task, Action, Result) to evaluate the answer.
- Give specific, constructive feedback that helps the candidate improve.
- Give a score between 1 and 10.
- Only respond with a JSON object like this:
{ "feedback": "string", "score": number }

Do not include anything else outside the JSON object.
Do not wrap it in triple backticks or markdown.
Do not explain your output.`

// EvaluationTurns builds the scoring prompt for a submitted answer. The
// candidate's answer is always the final user turn.
func EvaluationTurns(p Persona, question, rubric, answer string) []llm.Turn {
	if rubric == "" {
		rubric = DefaultRubric
	}
	persona := fmt.Sprintf("You are an interviewer interviewing %s for a %s %s role and this interview is %s.",
		p.CandidateName, p.Level, p.Position, p.Type)
	context := fmt.Sprintf(`The question you asked was: "%s". Evaluate the candidate's answer as in a real mock interview and score it on a scale of 1 to 10.`, question)

	return []llm.Turn{
		{Role: llm.RoleSystem, Text: persona},
		{Role: llm.RoleSystem, Text: context},
		{Role: llm.RoleSystem, Text: rubric},
		{Role: llm.RoleUser, Text: answer},
	}
}
