// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/contract"
	"github.com/luxfi/swaprouter/modules"
	"github.com/luxfi/swaprouter/precompileconfig"
	"github.com/luxfi/swaprouter/registry"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*SwapCallContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "swapCallConfig"

// ContractAddress is where the orchestrator is reachable.
var ContractAddress = common.HexToAddress(registry.SwapCallAddress)

// SwapCallPrecompile is the singleton instance
var SwapCallPrecompile = NewContract(nil)

// Module is the precompile module
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     SwapCallPrecompile,
	Configurator: &configurator{},
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

// Configure binds the orchestrator to its venue registry. The registry must
// be a live contract at activation.
func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	if err := config.Verify(chainConfig); err != nil {
		return err
	}
	if !state.Exist(config.VenueRegistry) || state.GetCodeSize(config.VenueRegistry) == 0 {
		return fmt.Errorf("%w: registry %s has no code", ErrConfiguration, config.VenueRegistry.Hex())
	}
	check, _ := ParseConsumptionCheck(config.ConsumptionCheck)

	if !state.Exist(ContractAddress) {
		state.CreateAccount(ContractAddress)
	}
	setStateAddress(state, ContractAddress, registrySlot, config.VenueRegistry)
	setStateAddress(state, ContractAddress, adminSlot, config.Admin)
	writeConsumptionCheck(state, ContractAddress, check)
	return nil
}

// Config implements the precompileconfig.Config interface
type Config struct {
	Upgrade          precompileconfig.Upgrade `json:"upgrade,omitempty"`
	VenueRegistry    common.Address           `json:"venueRegistry"`
	Admin            common.Address           `json:"admin,omitempty"`
	ConsumptionCheck string                   `json:"consumptionCheck,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) &&
		c.VenueRegistry == other.VenueRegistry &&
		c.Admin == other.Admin &&
		c.ConsumptionCheck == other.ConsumptionCheck
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	if c.VenueRegistry == (common.Address{}) {
		return fmt.Errorf("%w: venueRegistry is required", ErrConfiguration)
	}
	if _, err := ParseConsumptionCheck(c.ConsumptionCheck); err != nil {
		return err
	}
	return nil
}
