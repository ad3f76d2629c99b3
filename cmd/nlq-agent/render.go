/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"pgedge-nlq-agent/internal/pipeline"
)

// Color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// maximum result rows shown in the terminal; the full count is always
// reported alongside
const displayRowLimit = 20

// ui renders agent output to the terminal
type ui struct {
	noColor bool
}

func newUI(noColor bool) *ui {
	return &ui{noColor: noColor}
}

func (u *ui) colorize(color, text string) string {
	if u.noColor {
		return text
	}
	return color + text + colorReset
}

// printWelcome prints the chat banner
// ASCII art credit: https://ascii.co.uk/art/elephant
func (u *ui) printWelcome() {
	elephant := `
          _
   ______/ \-.   _           pgEdge Natural Language Agent
.-/     (    o\_//           Ask questions in plain English, get SQL and results
 |  ___  \_/\---'            Type \help for commands, \quit to leave
 |_||  |_||
`
	fmt.Println(u.colorize(colorCyan, elephant))
}

func (u *ui) prompt() string {
	return u.colorize(colorGreen+colorBold, "You: ")
}

func (u *ui) printError(text string) {
	fmt.Println(u.colorize(colorRed, "Error: ") + text)
}

func (u *ui) printSystem(text string) {
	fmt.Println(u.colorize(colorYellow, "System: ") + text)
}

func (u *ui) printHelp() {
	help := `
Available commands:
  \help                              - Show this help message
  \feedback <id> positive|negative   - Rate a recorded answer
  \quit, \exit                       - Exit the chat

History navigation:
  Up/Down   - Navigate through question history
  Ctrl+R    - Reverse search history

Ask questions naturally; the agent generates SQL, validates it against
the schema, and runs it when a database is configured.
`
	fmt.Println(u.colorize(colorCyan, help))
}

// printOutcome renders one pipeline outcome as markdown through glamour,
// falling back to plain text when rendering fails
func (u *ui) printOutcome(outcome *pipeline.Outcome, feedbackID string) {
	text := outcomeMarkdown(outcome, feedbackID)

	style := "dark"
	if u.noColor {
		style = "notty"
	}

	width := u.terminalWidth()
	if width > 120 {
		// Cap for table readability on wide terminals
		width = 120
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		rendered, err := r.Render(text)
		if err == nil {
			fmt.Print(rendered)
			return
		}
	}

	fmt.Println(text)
}

func (u *ui) terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 2 {
		return width - 2
	}
	return 80
}

// outcomeMarkdown formats the outcome for the terminal: the SQL, its
// confidence, the results table, and anything that went wrong.
func outcomeMarkdown(outcome *pipeline.Outcome, feedbackID string) string {
	var b strings.Builder

	if outcome.Err != "" {
		fmt.Fprintf(&b, "**Could not answer:** %s\n", outcome.Err)
		return b.String()
	}

	if outcome.SQLQuery != "" {
		fmt.Fprintf(&b, "```sql\n%s\n```\n\n", outcome.SQLQuery)
	}

	status := "not validated"
	if outcome.Validated {
		status = "validated"
	}
	fmt.Fprintf(&b, "Confidence: **%d/100** (%s, %d iteration", outcome.Confidence, status, outcome.Iterations)
	if outcome.Iterations != 1 {
		b.WriteString("s")
	}
	b.WriteString(")\n")

	if len(outcome.ValidationErrors) > 0 {
		b.WriteString("\n**Validation issues:**\n")
		for _, msg := range outcome.ValidationErrors {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
	}

	if outcome.ExecutionError != "" {
		fmt.Fprintf(&b, "\n**Execution failed:** %s\n", outcome.ExecutionError)
	}

	if outcome.Executed && outcome.Results != nil {
		b.WriteString("\n")
		b.WriteString(resultsTable(outcome))
	}

	if feedbackID != "" {
		fmt.Fprintf(&b, "\nAnswer id `%s` (rate with \\feedback %s positive|negative)\n", feedbackID, feedbackID)
	}

	return b.String()
}

// resultsTable renders the result set as a markdown table, truncated to
// displayRowLimit rows
func resultsTable(outcome *pipeline.Outcome) string {
	rows := outcome.Results
	if len(rows.Columns) == 0 {
		return "No rows returned.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%d row", len(rows.Records))
	if len(rows.Records) != 1 {
		b.WriteString("s")
	}
	b.WriteString(":**\n\n")

	b.WriteString("| " + strings.Join(rows.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(rows.Columns)) + "\n")

	limit := len(rows.Records)
	if limit > displayRowLimit {
		limit = displayRowLimit
	}
	for _, record := range rows.Records[:limit] {
		cells := make([]string, len(rows.Columns))
		for i, col := range rows.Columns {
			cells[i] = formatCell(record[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	if len(rows.Records) > limit {
		fmt.Fprintf(&b, "\n_…and %d more rows_\n", len(rows.Records)-limit)
	}
	return b.String()
}

func formatCell(value interface{}) string {
	if value == nil {
		return "NULL"
	}
	s := fmt.Sprintf("%v", value)
	// Pipes would break the markdown table
	return strings.ReplaceAll(s, "|", "\\|")
}
