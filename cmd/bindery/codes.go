package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	vberrors "github.com/vango-dev/bindery/internal/errors"
)

func codesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes [code]",
		Short: "List error codes or explain one",
		Long: `List every error code bindery can report, or print the message and
suggestion registered for one code.

Examples:
  bindery codes
  bindery codes R005`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, code := range vberrors.GetAllCodes() {
					tmpl, _ := vberrors.GetTemplate(code)
					fmt.Fprintf(out, "  %s  %-9s %s\n", code, tmpl.Category, tmpl.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			tmpl, ok := vberrors.GetTemplate(code)
			if !ok {
				return fmt.Errorf("unknown error code %q", args[0])
			}
			fmt.Fprintf(out, "%s (%s): %s\n", code, tmpl.Category, tmpl.Message)
			if tmpl.Suggestion != "" {
				fmt.Fprintf(out, "Hint: %s\n", tmpl.Suggestion)
			}
			return nil
		},
	}
}
