package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Par123456/selfcursor/internal/bot/handlers"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted AFK state and rule counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), handlers.FormatStatus(a.engine.Status(), time.Time{}, time.Now()))
			return nil
		},
	}
}
