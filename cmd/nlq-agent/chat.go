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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question-and-answer session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ctx := cmd.Context()
		a, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		return chatLoop(ctx, a)
	},
}

func chatLoop(ctx context.Context, a *app) error {
	u := newUI(false)
	u.printWelcome()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            u.prompt(),
		HistoryFile:       historyFilePath(),
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	// id of the most recent recorded answer, for \feedback without an id
	lastID := ""

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, `\`) {
			if quit := runCommand(ctx, a, u, input, lastID); quit {
				break
			}
			continue
		}

		switch strings.ToLower(input) {
		case "quit", "exit":
			return nil
		case "help":
			u.printHelp()
			continue
		}

		outcome := a.ask(ctx, input)
		id := a.record(ctx, outcome)
		if id != "" {
			lastID = id
		}
		fmt.Println()
		u.printOutcome(outcome, id)
	}

	return nil
}

// runCommand handles backslash commands. Returns true when the session
// should end.
func runCommand(ctx context.Context, a *app, u *ui, input, lastID string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case `\quit`, `\exit`, `\q`:
		return true
	case `\help`:
		u.printHelp()
	case `\feedback`:
		handleFeedback(ctx, a, u, fields[1:], lastID)
	default:
		u.printError(fmt.Sprintf("Unknown command %s (try \\help)", fields[0]))
	}
	return false
}

func handleFeedback(ctx context.Context, a *app, u *ui, args []string, lastID string) {
	if a.sink == nil {
		u.printError("Feedback recording is disabled")
		return
	}

	var id, verdict string
	switch len(args) {
	case 1:
		// \feedback positive   rates the most recent answer
		id, verdict = lastID, args[0]
		if id == "" {
			u.printError("No answer to rate yet")
			return
		}
	case 2:
		id, verdict = args[0], args[1]
	default:
		u.printError(`Usage: \feedback [id] positive|negative`)
		return
	}

	verdict = strings.ToLower(verdict)
	if verdict != "positive" && verdict != "negative" {
		u.printError(`Feedback must be "positive" or "negative"`)
		return
	}

	updated, err := a.sink.UpdateFeedback(ctx, id, verdict)
	if err != nil {
		u.printError(fmt.Sprintf("Failed to record feedback: %v", err))
		return
	}
	if !updated {
		u.printError(fmt.Sprintf("Answer %s was not found or already rated", id))
		return
	}
	u.printSystem(fmt.Sprintf("Recorded %s feedback for %s", verdict, id))
}

// historyFilePath keeps readline history under the user's home directory,
// falling back to the working directory when home is unknown
func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nlq-agent_history"
	}
	return filepath.Join(home, ".nlq-agent_history")
}
