package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docsift/ai"
)

const answerSystemPrompt = `You answer questions about an organization's internal documents.

Rules:
- Use ONLY the documents given in the user message. Do not use outside knowledge.
- If the documents do not contain the answer, say that the document does not mention it.
- Answer in the language of the question.
- Quote figures, dates, amounts, and names exactly as they appear in the documents.
- Name the document you used by its ID.
- Be brief: a few sentences unless the question asks for a list.`

const answerUserTemplate = `Documents:

%s

Question: %s`

// buildUserPrompt renders the sources, best first, followed by the question.
func buildUserPrompt(question string, sources []ai.Source) string {
	var b strings.Builder
	for i, s := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] ID: %s (relevance %.1f)\n%s", i+1, s.SourceID, s.Relevance, s.Content)
	}
	return fmt.Sprintf(answerUserTemplate, b.String(), strings.TrimSpace(question))
}
