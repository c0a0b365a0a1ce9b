// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/swaprouter/internal/scenario"
)

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run one operation against a simulated market",
		Long: `Build the markets and target described by a scenario file, submit its
operation to the precompile and report what was consumed, refunded and emitted.

Any scenario key can be overridden from the environment with the SWAPROUTER_
prefix, nested keys joined by underscores:

  SWAPROUTER_OPERATION_AMOUNT_IN=2000000000000000 swaprouter simulate scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runSimulate,
	}
}

type simulationReport struct {
	Method       string            `json:"method"`
	Route        string            `json:"route"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	RevertReason string            `json:"revertReason,omitempty"`
	GasUsed      uint64            `json:"gasUsed"`
	Consumed     string            `json:"consumed,omitempty"`
	Refunded     string            `json:"refunded,omitempty"`
	Threshold    string            `json:"threshold"`
	Purchases    uint64            `json:"purchases"`
	Before       map[string]string `json:"before"`
	After        map[string]string `json:"after"`
	Events       int               `json:"events"`
}

func decimals(m map[string]*uint256.Int) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.Dec()
	}
	return out
}

func newReport(res *scenario.Result) simulationReport {
	r := simulationReport{
		Method:       res.Method,
		Route:        res.Route.String(),
		Success:      res.Succeeded(),
		RevertReason: res.RevertReason,
		GasUsed:      res.GasUsed,
		Threshold:    res.Threshold.Dec(),
		Purchases:    res.Purchases,
		Before:       decimals(res.Before),
		After:        decimals(res.After),
		Events:       len(res.Records),
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	} else {
		r.Consumed = res.Consumed.Dec()
		r.Refunded = res.Refunded.Dec()
	}
	return r
}

func runSimulate(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	res, err := scenario.Run(s, log.NewTestLogger(log.InfoLevel))
	if err != nil {
		return err
	}

	report := newReport(res)
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, report)
	}
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, r simulationReport) {
	fmt.Fprintf(out, "\n%s via %s\n\n", color.CyanString(r.Route), r.Method)
	if r.Success {
		fmt.Fprintf(out, "Status:     %s\n", color.GreenString("completed"))
		fmt.Fprintf(out, "Consumed:   %s\n", r.Consumed)
		fmt.Fprintf(out, "Refunded:   %s (threshold %s)\n", r.Refunded, r.Threshold)
	} else {
		fmt.Fprintf(out, "Status:     %s\n", color.RedString("reverted"))
		fmt.Fprintf(out, "Error:      %s\n", r.Error)
		if r.RevertReason != "" {
			fmt.Fprintf(out, "Reason:     %s\n", color.YellowString(r.RevertReason))
		}
	}
	fmt.Fprintf(out, "Gas used:   %d\n", r.GasUsed)
	fmt.Fprintf(out, "Purchases:  %d\n", r.Purchases)
	fmt.Fprintf(out, "Events:     %d\n\n", r.Events)

	assets := make([]string, 0, len(r.Before))
	for asset := range r.Before {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	fmt.Fprintln(out, "Initiator balances:")
	for _, asset := range assets {
		fmt.Fprintf(out, "  %-8s %s -> %s\n", asset, r.Before[asset], r.After[asset])
	}
	fmt.Fprintln(out)
}
