// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall

import (
	"fmt"
	"strings"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// SwapCallRawABI is the interface the precompile exposes at its address.
const SwapCallRawABI = `[
	{"type":"function","name":"exchangeNativeAndInvoke","stateMutability":"payable",
	 "inputs":[{"name":"targetAsset","type":"address"},{"name":"targetAmount","type":"uint256"},{"name":"target","type":"address"},{"name":"payload","type":"bytes"}],
	 "outputs":[{"name":"consumed","type":"uint256"},{"name":"refunded","type":"uint256"}]},
	{"type":"function","name":"exchangeNativeAndInvokeDynamic","stateMutability":"payable",
	 "inputs":[{"name":"targetAsset","type":"address"},{"name":"target","type":"address"},{"name":"priceQuery","type":"bytes"},{"name":"payload","type":"bytes"}],
	 "outputs":[{"name":"consumed","type":"uint256"},{"name":"refunded","type":"uint256"}]},
	{"type":"function","name":"exchangeTokenAndInvoke","stateMutability":"nonpayable",
	 "inputs":[{"name":"sourceAsset","type":"address"},{"name":"sourceAmountIn","type":"uint256"},{"name":"targetAsset","type":"address"},{"name":"targetAmount","type":"uint256"},{"name":"target","type":"address"},{"name":"payload","type":"bytes"}],
	 "outputs":[{"name":"consumed","type":"uint256"},{"name":"refunded","type":"uint256"}]},
	{"type":"function","name":"exchangeTokenAndInvokeDynamic","stateMutability":"nonpayable",
	 "inputs":[{"name":"sourceAsset","type":"address"},{"name":"sourceAmountIn","type":"uint256"},{"name":"targetAsset","type":"address"},{"name":"target","type":"address"},{"name":"priceQuery","type":"bytes"},{"name":"payload","type":"bytes"}],
	 "outputs":[{"name":"consumed","type":"uint256"},{"name":"refunded","type":"uint256"}]},
	{"type":"function","name":"exchangeTokenForNativeAndInvoke","stateMutability":"nonpayable",
	 "inputs":[{"name":"sourceAsset","type":"address"},{"name":"sourceAmountIn","type":"uint256"},{"name":"targetAmount","type":"uint256"},{"name":"target","type":"address"},{"name":"payload","type":"bytes"}],
	 "outputs":[{"name":"consumed","type":"uint256"},{"name":"refunded","type":"uint256"}]},
	{"type":"function","name":"exchangeTokenForNativeAndInvokeDynamic","stateMutability":"nonpayable",
	 "inputs":[{"name":"sourceAsset","type":"address"},{"name":"sourceAmountIn","type":"uint256"},{"name":"target","type":"address"},{"name":"priceQuery","type":"bytes"},{"name":"payload","type":"bytes"}],
	 "outputs":[{"name":"consumed","type":"uint256"},{"name":"refunded","type":"uint256"}]},
	{"type":"function","name":"recoverCall","stateMutability":"nonpayable",
	 "inputs":[{"name":"target","type":"address"},{"name":"data","type":"bytes"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"result","type":"bytes"}]},
	{"type":"function","name":"setAdmin","stateMutability":"nonpayable",
	 "inputs":[{"name":"newAdmin","type":"address"}],"outputs":[]},
	{"type":"function","name":"admin","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"venueRegistry","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"venueFor","stateMutability":"view",
	 "inputs":[{"name":"asset","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"minRefundThreshold","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"SwapAndCall","anonymous":false,
	 "inputs":[{"name":"initiator","type":"address","indexed":true},{"name":"fromAsset","type":"address","indexed":true},{"name":"toAsset","type":"address","indexed":true},{"name":"target","type":"address","indexed":false},{"name":"amountIn","type":"uint256","indexed":false},{"name":"amountRefunded","type":"uint256","indexed":false}]}
]`

// ERC20RawABI is the subset of ERC20 the orchestrator drives.
const ERC20RawABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// VenueRawABI is the exact-output surface of a per-token liquidity venue.
const VenueRawABI = `[
	{"type":"function","name":"ethToTokenSwapOutput","stateMutability":"payable","inputs":[{"name":"tokensBought","type":"uint256"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"ethSold","type":"uint256"}]},
	{"type":"function","name":"ethToTokenTransferOutput","stateMutability":"payable","inputs":[{"name":"tokensBought","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"recipient","type":"address"}],"outputs":[{"name":"ethSold","type":"uint256"}]},
	{"type":"function","name":"tokenToEthSwapOutput","stateMutability":"nonpayable","inputs":[{"name":"ethBought","type":"uint256"},{"name":"maxTokens","type":"uint256"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"tokensSold","type":"uint256"}]},
	{"type":"function","name":"tokenToTokenSwapOutput","stateMutability":"nonpayable","inputs":[{"name":"tokensBought","type":"uint256"},{"name":"maxTokensSold","type":"uint256"},{"name":"maxEthSold","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"tokenAddr","type":"address"}],"outputs":[{"name":"tokensSold","type":"uint256"}]},
	{"type":"function","name":"getEthToTokenOutputPrice","stateMutability":"view","inputs":[{"name":"tokensBought","type":"uint256"}],"outputs":[{"name":"ethSold","type":"uint256"}]},
	{"type":"function","name":"getTokenToEthOutputPrice","stateMutability":"view","inputs":[{"name":"ethBought","type":"uint256"}],"outputs":[{"name":"tokensSold","type":"uint256"}]}
]`

// VenueRegistryRawABI maps a token to its venue.
const VenueRegistryRawABI = `[
	{"type":"function","name":"getExchange","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`

var (
	SwapCallABI      = ParseABI(SwapCallRawABI)
	ERC20ABI         = ParseABI(ERC20RawABI)
	VenueABI         = ParseABI(VenueRawABI)
	VenueRegistryABI = ParseABI(VenueRegistryRawABI)
)

// ExtendedABI wraps the standard ABI and adds PackOutput, UnpackInput, and PackEvent methods
type ExtendedABI struct {
	abi.ABI
}

// ParseABI parses the raw ABI JSON and returns an ExtendedABI
func ParseABI(rawABI string) ExtendedABI {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return ExtendedABI{ABI: parsed}
}

// Selector returns the 4-byte method ID of the named method.
func (e ExtendedABI) Selector(name string) [4]byte {
	var sel [4]byte
	if method, ok := e.Methods[name]; ok {
		copy(sel[:], method.ID)
	}
	return sel
}

// PackOutput packs the given args as the output of given method name to conform the ABI.
// This does not include method ID.
func (e ExtendedABI) PackOutput(name string, args ...interface{}) ([]byte, error) {
	method, exist := e.Methods[name]
	if !exist {
		return nil, fmt.Errorf("method '%s' not found", name)
	}
	return method.Outputs.Pack(args...)
}

// UnpackInput unpacks the input according to the ABI specification.
// useStrictMode indicates whether to check the input data length strictly.
func (e ExtendedABI) UnpackInput(name string, data []byte, useStrictMode bool) ([]interface{}, error) {
	method, exist := e.Methods[name]
	if !exist {
		return nil, fmt.Errorf("method '%s' not found", name)
	}
	if useStrictMode && len(data)%32 != 0 {
		return nil, fmt.Errorf("abi: improperly formatted input: %x", data)
	}
	return method.Inputs.Unpack(data)
}

// PackEvent packs the given event name and arguments to conform the ABI.
// Returns the topics for the event and the packed data of non-indexed args.
func (e ExtendedABI) PackEvent(name string, args ...interface{}) ([]common.Hash, []byte, error) {
	event, exist := e.Events[name]
	if !exist {
		return nil, nil, fmt.Errorf("event '%s' not found", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, nil, fmt.Errorf("event '%s' unexpected number of inputs %d", name, len(args))
	}

	var (
		nonIndexedInputs = make([]interface{}, 0)
		indexedInputs    = make([]interface{}, 0)
		nonIndexedArgs   abi.Arguments
	)

	for i, arg := range event.Inputs {
		if arg.Indexed {
			indexedInputs = append(indexedInputs, args[i])
		} else {
			nonIndexedArgs = append(nonIndexedArgs, arg)
			nonIndexedInputs = append(nonIndexedInputs, args[i])
		}
	}

	packedArguments, err := nonIndexedArgs.Pack(nonIndexedInputs...)
	if err != nil {
		return nil, nil, err
	}

	topics := make([]common.Hash, 0, len(indexedInputs)+1)
	if !event.Anonymous {
		topics = append(topics, event.ID)
	}

	for _, input := range indexedInputs {
		topic, err := packTopic(input)
		if err != nil {
			return nil, nil, err
		}
		topics = append(topics, topic)
	}

	return topics, packedArguments, nil
}

// packTopic packs a single indexed argument into a topic hash. Only
// addresses are indexed by the events declared here.
func packTopic(value interface{}) (common.Hash, error) {
	addr, ok := value.(common.Address)
	if !ok {
		return common.Hash{}, fmt.Errorf("unsupported indexed type: %T", value)
	}
	return common.BytesToHash(addr.Bytes()), nil
}
