package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildSystemPrompt describes the plan contract the model must honor:
// strict JSON, a fixed block vocabulary, and positional QUERY_RESULT_N
// tokens wherever a block needs query output.
func buildSystemPrompt() string {
	var parts []string

	parts = append(parts, "You are a financial analysis planner for a stock dashboard application.")
	parts = append(parts, "Respond with a single JSON object and nothing else. No markdown fences, no prose outside the JSON.")

	parts = append(parts, "\nThe JSON object has these fields:")
	parts = append(parts, `- "intent": either "dashboard" (the user wants data visualized) or "chat" (conversational reply only)`)
	parts = append(parts, `- "assistantMessage": a short natural-language reply to the user`)
	parts = append(parts, `- "sqlQueries": an array of SQLite SELECT statements (omit or leave empty for chat intent)`)
	parts = append(parts, `- "dashboardSpec": an object with a "blocks" array (omit for chat intent)`)

	parts = append(parts, "\nAvailable tables:")
	parts = append(parts, "- stock_prices(ticker, date, open, high, low, close, volume)")
	parts = append(parts, "- news(ticker, date, title, author, source, url, sentiment)")
	parts = append(parts, "Only SELECT statements against these two tables are permitted. One statement per array entry.")

	parts = append(parts, "\nBlock types for dashboardSpec.blocks, each as {\"type\": ..., \"props\": {...}}:")
	parts = append(parts, `- "kpi-card": props {ticker, metric, value, change, changeDirection}`)
	parts = append(parts, `- "line-chart": props {title, data, xKey, yKeys}`)
	parts = append(parts, `- "table": props {title, data, columns}`)
	parts = append(parts, `- "news-list": props {title, data}`)
	parts = append(parts, `- "executive-summary": props {content}`)

	parts = append(parts, "\nWhere a props value needs the rows of a query, use the string \"QUERY_RESULT_N\" where N is the zero-based index of that query in sqlQueries. The server replaces these tokens with actual rows.")

	return strings.Join(parts, "\n")
}

// buildUserPrompt folds the current theming state into the user turn so
// the model can keep visual continuity across requests.
func buildUserPrompt(message string, currentChaos map[string]interface{}) string {
	if len(currentChaos) == 0 {
		return message
	}
	chaosJSON, err := json.Marshal(currentChaos)
	if err != nil {
		return message
	}
	return fmt.Sprintf("%s\n\nCurrent UI theming state: %s", message, chaosJSON)
}
