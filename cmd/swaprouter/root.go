// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swaprouter",
		Short: "Inspect and simulate the swap-and-call precompile",
		Long: `swaprouter works with the swap-and-call precompile, which exchanges an asset
for an exact amount of another through a registered venue, hands that amount
to a target contract, verifies it was consumed and refunds the rest.

Examples:
  swaprouter simulate scenario.yaml
  swaprouter selectors
  swaprouter threshold --gas-price 25000000000`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")

	cmd.AddCommand(newSimulateCmd(), newSelectorsCmd(), newThresholdCmd())
	return cmd
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
