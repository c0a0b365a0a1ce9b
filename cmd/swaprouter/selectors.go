// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/luxfi/swaprouter/registry"
	"github.com/luxfi/swaprouter/swapcall"
)

type selectorEntry struct {
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
}

type selectorsReport struct {
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Description string          `json:"description"`
	LPRange     string          `json:"lpRange"`
	BaseGas     uint64          `json:"baseGas"`
	Chains      []string        `json:"chains"`
	Selectors   []selectorEntry `json:"selectors"`
}

func newSelectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selectors",
		Short: "Describe the precompile and list its method selectors and event topics",
		Args:  cobra.NoArgs,
		RunE:  runSelectors,
	}
}

func selectorEntries() []selectorEntry {
	var entries []selectorEntry
	for _, method := range swapcall.SwapCallABI.Methods {
		entries = append(entries, selectorEntry{
			Kind:      "function",
			Signature: method.Sig,
			Selector:  fmt.Sprintf("0x%x", method.ID),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Signature < entries[j].Signature })
	for _, event := range swapcall.SwapCallABI.Events {
		entries = append(entries, selectorEntry{
			Kind:      "event",
			Signature: event.Sig,
			Selector:  event.ID.Hex(),
		})
	}
	return entries
}

func newSelectorsReport() (selectorsReport, error) {
	info, ok := registry.Lookup(swapcall.ContractAddress)
	if !ok {
		return selectorsReport{}, fmt.Errorf("no registry entry for %s", swapcall.ContractAddress.Hex())
	}
	return selectorsReport{
		Name:        info.Name,
		Address:     info.Address,
		Description: info.Description,
		LPRange:     info.LPRange,
		BaseGas:     swapcall.GasSwapAndCall,
		Chains:      info.Chains,
		Selectors:   selectorEntries(),
	}, nil
}

func runSelectors(cmd *cobra.Command, _ []string) error {
	report, err := newSelectorsReport()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, report)
	}

	fmt.Fprintf(out, "\n%s at %s (%s)\n", color.CyanString(report.Name), report.Address, report.LPRange)
	fmt.Fprintf(out, "%s\n", report.Description)
	fmt.Fprintf(out, "Base gas:   %d\n", report.BaseGas)
	fmt.Fprintf(out, "Chains:     %s\n\n", strings.Join(report.Chains, ", "))
	for _, e := range report.Selectors {
		fmt.Fprintf(out, "  %-8s %s  %s\n", e.Kind, color.YellowString(e.Selector), e.Signature)
	}
	fmt.Fprintln(out)
	return nil
}
