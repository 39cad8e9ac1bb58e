package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vikasavnish/heirloom/internal/dates"
)

func runYear(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if y, ok := dates.ExtractYear(text); ok {
		fmt.Fprintln(cmd.OutOrStdout(), y)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "no year in %q\n", text)
	return nil
}
