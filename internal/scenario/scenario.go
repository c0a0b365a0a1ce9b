// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scenario loads a simulated market and one swap-and-call operation
// from a config file and runs it against the precompile.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/spf13/viper"

	"github.com/luxfi/swaprouter/internal/evmsim"
	"github.com/luxfi/swaprouter/swapcall"
)

// EnvPrefix prefixes environment overrides, e.g. SWAPROUTER_OPERATION_AMOUNT_IN.
const EnvPrefix = "SWAPROUTER"

// Native is the asset spelling of the native coin.
const Native = "native"

var ErrInvalidScenario = errors.New("invalid scenario")

// Listing is one token and its exchange.
type Listing struct {
	Symbol        string `mapstructure:"symbol"`
	Token         string `mapstructure:"token"`
	Exchange      string `mapstructure:"exchange"`
	NativeReserve string `mapstructure:"native_reserve"`
	TokenReserve  string `mapstructure:"token_reserve"`
}

// TargetSpec is the contract the operation invokes.
type TargetSpec struct {
	Address string `mapstructure:"address"`
	Asset   string `mapstructure:"asset"`
	Price   string `mapstructure:"price"`
	Mode    string `mapstructure:"mode"`
}

// OperationSpec is the operation the initiator submits. An empty
// TargetAmount resolves the amount from the target's price().
type OperationSpec struct {
	Source       string `mapstructure:"source"`
	AmountIn     string `mapstructure:"amount_in"`
	Target       string `mapstructure:"target"`
	TargetAmount string `mapstructure:"target_amount"`
}

// Scenario is a complete simulation input.
type Scenario struct {
	Registry         string        `mapstructure:"registry"`
	Admin            string        `mapstructure:"admin"`
	ConsumptionCheck string        `mapstructure:"consumption_check"`
	GasPrice         string        `mapstructure:"gas_price"`
	Gas              uint64        `mapstructure:"gas"`
	Initiator        string        `mapstructure:"initiator"`
	Funds            string        `mapstructure:"funds"`
	Markets          []Listing     `mapstructure:"markets"`
	Target           TargetSpec    `mapstructure:"target"`
	Operation        OperationSpec `mapstructure:"operation"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry", "0x0000000000000000000000000000000000001000")
	v.SetDefault("consumption_check", "allowance")
	v.SetDefault("gas_price", "1000000000")
	v.SetDefault("gas", 5_000_000)
	v.SetDefault("initiator", "0x00000000000000000000000000000000000A11CE")
	v.SetDefault("funds", "10000000000000000000")
	v.SetDefault("target.mode", "exact")
	v.SetDefault("operation.source", Native)
	v.SetDefault("operation.amount_in", "")
	v.SetDefault("operation.target_amount", "")
}

// Load reads a scenario from path. Values can be overridden from the
// environment with EnvPrefix, nested keys joined by underscores.
func Load(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var s Scenario
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every address and amount parses and that the assets
// the operation names are listed.
func (s *Scenario) Validate() error {
	for name, addr := range map[string]string{
		"registry":       s.Registry,
		"initiator":      s.Initiator,
		"target.address": s.Target.Address,
	} {
		if _, err := parseAddress(addr); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, name, err)
		}
	}
	if s.Admin != "" {
		if _, err := parseAddress(s.Admin); err != nil {
			return fmt.Errorf("%w: admin: %w", ErrInvalidScenario, err)
		}
	}
	if _, err := swapcall.ParseConsumptionCheck(s.ConsumptionCheck); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	symbols := make(map[string]bool, len(s.Markets))
	for i, m := range s.Markets {
		if m.Symbol == "" || strings.EqualFold(m.Symbol, Native) {
			return fmt.Errorf("%w: markets[%d]: invalid symbol %q", ErrInvalidScenario, i, m.Symbol)
		}
		if symbols[m.Symbol] {
			return fmt.Errorf("%w: markets[%d]: duplicate symbol %s", ErrInvalidScenario, i, m.Symbol)
		}
		symbols[m.Symbol] = true
		for _, addr := range []string{m.Token, m.Exchange} {
			if _, err := parseAddress(addr); err != nil {
				return fmt.Errorf("%w: markets[%d]: %w", ErrInvalidScenario, i, err)
			}
		}
		for _, amount := range []string{m.NativeReserve, m.TokenReserve} {
			if _, err := parseAmount(amount); err != nil {
				return fmt.Errorf("%w: markets[%d]: %w", ErrInvalidScenario, i, err)
			}
		}
	}

	for name, asset := range map[string]string{
		"operation.source": s.Operation.Source,
		"operation.target": s.Operation.Target,
		"target.asset":     s.Target.Asset,
	} {
		if !strings.EqualFold(asset, Native) && !symbols[asset] {
			return fmt.Errorf("%w: %s: asset %q is not listed", ErrInvalidScenario, name, asset)
		}
	}
	if _, err := parseMode(s.Target.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	for name, amount := range map[string]string{
		"gas_price":           s.GasPrice,
		"funds":               s.Funds,
		"target.price":        s.Target.Price,
		"operation.amount_in": s.Operation.AmountIn,
	} {
		if _, err := parseAmount(amount); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, name, err)
		}
	}
	if s.Operation.TargetAmount != "" {
		if _, err := parseAmount(s.Operation.TargetAmount); err != nil {
			return fmt.Errorf("%w: operation.target_amount: %w", ErrInvalidScenario, err)
		}
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func mustAddress(s string) common.Address {
	addr, _ := parseAddress(s)
	return addr
}

// parseAmount parses a decimal amount in base units.
func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("missing amount")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func mustAmount(s string) *uint256.Int {
	v, err := parseAmount(s)
	if err != nil {
		return uint256.NewInt(0)
	}
	return v
}

func parseMode(s string) (evmsim.TargetMode, error) {
	switch strings.ToLower(s) {
	case "", "exact":
		return evmsim.TargetExact, nil
	case "under-consume":
		return evmsim.TargetUnderConsume, nil
	case "revert":
		return evmsim.TargetRevert, nil
	default:
		return 0, fmt.Errorf("unknown target mode %q", s)
	}
}
