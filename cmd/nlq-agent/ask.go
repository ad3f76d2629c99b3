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
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		ctx := cmd.Context()
		a, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		question := strings.Join(args, " ")
		outcome := a.ask(ctx, question)
		id := a.record(ctx, outcome)

		u := newUI(false)
		u.printOutcome(outcome, id)
		if outcome.Err != "" {
			return errors.New(outcome.Err)
		}
		return nil
	},
}
