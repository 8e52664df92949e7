package analyzer

import (
	"strings"
)

const (
	// MaxInputChars is the longest statement text sent to the model.
	MaxInputChars = 30000
	// TruncationMarker is appended when the text is cut at MaxInputChars.
	TruncationMarker = "\n... (truncated)"
)

// truncateInput cuts text to MaxInputChars runes and marks the cut.
func truncateInput(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxInputChars {
		return text
	}
	return string(runes[:MaxInputChars]) + TruncationMarker
}

// buildAnalysisPrompt embeds the statement text in the fixed extraction instruction.
func buildAnalysisPrompt(text string) string {
	var b strings.Builder

	b.WriteString("Analyze the following bank statement transaction data and extract the information in JSON format.\n\n")
	b.WriteString("Transaction data:\n")
	b.WriteString(text)
	b.WriteString("\n\n")

	b.WriteString("Extract the transactions and return a JSON object with the following exact format:\n")
	b.WriteString(`{
  "transactions": [
    {
      "date": "YYYY-MM-DD",
      "description": "Transaction description",
      "amount": -123.45,
      "category": "food"
    }
  ],
  "analysis": {
    "total_income": 1000.00,
    "total_expense": -500.00,
    "net_amount": 500.00,
    "categories": ["food", "transport"],
    "categories_amount": {
      "food": {
        "total_amount": -100.00,
        "transaction_count": 5,
        "type": "expense"
      }
    }
  }
}`)
	b.WriteString("\n\n")

	b.WriteString("Important rules:\n")
	b.WriteString("- Use negative amounts for expenses and positive for income\n")
	b.WriteString("- Use YYYY-MM-DD format for dates\n")
	b.WriteString("- Return only valid JSON, no markdown or extra text\n")
	b.WriteString("- If you cannot parse dates, use \"2024-01-01\"\n")
	b.WriteString("- Categorize transactions appropriately (food, transport, salary, entertainment, etc.)\n")

	return b.String()
}
