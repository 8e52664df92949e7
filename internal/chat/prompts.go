package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-insights/internal/domain"
)

const promptTemplate = `You are assisting user with ID: %[1]s.
Answer the user's financial question concisely using the context below.
Constraints:
- Max 120 words
- Start directly with the answer (no preamble)
- Use at most 3 short bullet points when appropriate
- If data is insufficient, say so briefly and request the minimum extra info

Context: transaction history for user %[1]s
` + "```" + `
%[2]s
` + "```" + `

Context: analysis summaries for user %[1]s
` + "```" + `
%[3]s
` + "```" + `

User question: %[4]q
`

func buildPrompt(ownerID, question string, txs []domain.Transaction, statements []domain.Statement) (string, error) {
	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		lines = append(lines, fmt.Sprintf("- Date: %s, Description: %s, Amount: %s, Category: %s",
			tx.Date.Format("2006-01-02"), tx.Description, tx.Amount.String(), tx.Category))
	}

	summaries := make([]string, 0, len(statements))
	for _, st := range statements {
		if st.AnalysisSummary == nil {
			continue
		}
		b, err := json.MarshalIndent(st.AnalysisSummary, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode summary %s: %w", st.ID, err)
		}
		summaries = append(summaries, string(b))
	}

	return fmt.Sprintf(promptTemplate, ownerID, strings.Join(lines, "\n"), strings.Join(summaries, "\n"), question), nil
}
