// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luxfi/swaprouter/internal/scenario"
	"github.com/luxfi/swaprouter/swapcall"
)

func newThresholdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Show the native refund threshold at a gas price",
		Long: `Native leftovers at or below the threshold stay on the precompile instead of
being refunded. The threshold is the cost of one plain transfer at the given
gas price.

The gas price can also be set with SWAPROUTER_GAS_PRICE.`,
		Args: cobra.NoArgs,
		RunE: runThreshold,
	}
	cmd.Flags().String("gas-price", "1000000000", "Gas price in wei")
	return cmd
}

func runThreshold(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix(scenario.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlag("gas-price", cmd.Flags().Lookup("gas-price")); err != nil {
		return err
	}

	gasPrice, err := uint256.FromDecimal(v.GetString("gas-price"))
	if err != nil {
		return fmt.Errorf("invalid gas price %q: %w", v.GetString("gas-price"), err)
	}
	threshold := swapcall.RefundPolicy{}.Threshold(gasPrice)

	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, map[string]string{
			"gasPrice":  gasPrice.Dec(),
			"gas":       fmt.Sprint(swapcall.GasPlainTransfer),
			"threshold": threshold.Dec(),
		})
	}
	fmt.Fprintf(out, "\nGas price:  %s wei\n", gasPrice.Dec())
	fmt.Fprintf(out, "Threshold:  %s wei (%d gas)\n\n", color.GreenString(threshold.Dec()), swapcall.GasPlainTransfer)
	return nil
}
