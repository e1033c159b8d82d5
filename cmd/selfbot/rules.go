package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Par123456/selfcursor/internal/autoreply"
	apperrors "github.com/Par123456/selfcursor/internal/errors"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and edit auto-reply rules in the database (restart a running bot to pick up edits)",
	}

	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesAddCmd())
	cmd.AddCommand(newRulesRemoveCmd())
	cmd.AddCommand(newRulesClearCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			printRules(cmd.OutOrStdout(), a.engine)
			return nil
		},
	}
}

func newRulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <trigger> <response>",
		Short: "Add or replace a text rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exact, _ := cmd.Flags().GetBool("exact")
			peer, _ := cmd.Flags().GetInt64("peer")

			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			in := autoreply.RuleInput{
				Trigger:      args[0],
				Match:        autoreply.MatchSubstring,
				ResponseText: args[1],
				Scope:        autoreply.PeerScope(peer),
			}
			if exact {
				in.Match = autoreply.MatchExact
			}

			rule, err := a.engine.AddRule(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %q [%s, %s]\n", rule.ID, rule.Trigger, rule.Match, rule.Scope)
			return nil
		},
	}

	cmd.Flags().Bool("exact", false, "Match the whole message instead of a substring")
	cmd.Flags().Int64("peer", 0, "Only answer this sender (marked user id)")
	return cmd
}

func newRulesRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <trigger>",
		Short: "Remove the rule for a trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, _ := cmd.Flags().GetInt64("peer")

			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.engine.RemoveRule(cmd.Context(), args[0], autoreply.PeerScope(peer))
			if err != nil {
				return err
			}
			if n == 0 {
				return apperrors.NewNotFoundError(fmt.Sprintf("no rule for %q", args[0]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d rule(s)\n", n)
			return nil
		},
	}

	cmd.Flags().Int64("peer", 0, "Remove the rule scoped to this sender")
	return cmd
}

func newRulesClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.engine.ClearRules(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d rule(s)\n", n)
			return nil
		},
	}
}

func printRules(w io.Writer, engine *autoreply.Engine) {
	var b strings.Builder
	for rule := range engine.ListRules() {
		state := "on"
		if !rule.Enabled {
			state = "off"
		}
		fmt.Fprintf(&b, "%d\t%s\t%s\t%s\t%q\t%q\t%s\n",
			rule.ID, rule.Match, rule.Scope, state, rule.Trigger, rule.ResponseText, rule.ResponseMedia)
	}
	if b.Len() == 0 {
		fmt.Fprintln(w, "no rules")
		return
	}
	fmt.Fprint(w, b.String())
}
