// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapcall_test

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/swaprouter/internal/evmsim"
	"github.com/luxfi/swaprouter/swapcall"
)

const testGas = 5_000_000

var (
	alice    = common.HexToAddress("0xA11CE")
	bob      = common.HexToAddress("0xB0B")
	admin    = common.HexToAddress("0xAD")
	registry = common.HexToAddress("0x1000")

	tokenAAddr = common.HexToAddress("0x2001")
	tokenBAddr = common.HexToAddress("0x2002")
	tokenCAddr = common.HexToAddress("0x2003")
	targetAddr = common.HexToAddress("0x4001")

	// targetAmount is the exact amount every scenario hands the target.
	targetAmount = uint256.NewInt(420_000_000_000_000)
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

// testEnv is a market with two listed tokens and the orchestrator installed
// at its canonical address.
type testEnv struct {
	w        *evmsim.World
	market   *evmsim.Market
	contract *swapcall.SwapCallContract
	tokenA   *evmsim.Token // cheap token quoted against native
	tokenB   *evmsim.Token // 1:1 with native
	self     common.Address
}

func newTestEnv(t *testing.T, check string) *testEnv {
	t.Helper()
	w := evmsim.NewWorld()
	m := evmsim.NewMarket(w, registry)
	tokenA, _ := m.List("AAA", tokenAAddr, common.HexToAddress("0x3001"), ether(1000), uint256.NewInt(1_000_000_000))
	tokenB, _ := m.List("BBB", tokenBAddr, common.HexToAddress("0x3002"), ether(1000), ether(1000))

	c := swapcall.NewContract(nil)
	w.Install(swapcall.ContractAddress, c)
	cfg := &swapcall.Config{
		VenueRegistry:    registry,
		Admin:            admin,
		ConsumptionCheck: check,
	}
	require.NoError(t, swapcall.Module.Configure(nil, cfg, w.State, w.GetBlockContext()))

	w.Fund(alice, ether(10))
	return &testEnv{
		w:        w,
		market:   m,
		contract: c,
		tokenA:   tokenA,
		tokenB:   tokenB,
		self:     swapcall.ContractAddress,
	}
}

func (e *testEnv) deployTarget(asset common.Address, mode evmsim.TargetMode) *evmsim.Target {
	return evmsim.NewTarget(e.w, targetAddr, asset, targetAmount.Clone(), mode)
}

func (e *testEnv) transact(t *testing.T, from common.Address, value *uint256.Int, method string, args ...interface{}) ([]byte, error) {
	t.Helper()
	input, err := swapcall.SwapCallABI.Pack(method, args...)
	require.NoError(t, err)
	ret, _, err := e.w.Transact(from, e.self, input, value, testGas)
	return ret, err
}

// nativeQuote is what the BBB venue charges for targetAmount.
func (e *testEnv) nativeQuote(t *testing.T) *uint256.Int {
	t.Helper()
	quote, ok := e.market.Exchanges["BBB"].EthToTokenPrice(e.w, targetAmount)
	require.True(t, ok)
	return quote
}

// Calls into the scripted target.
var (
	purchaseCall           = mustPack("purchase")
	purchaseWithNativeCall = mustPack("purchaseWithNative")
	priceCall              = mustPack("price")
)

func mustPack(method string) []byte {
	input, err := evmsim.TargetABI.Pack(method)
	if err != nil {
		panic(err)
	}
	return input
}

func unpackResult(t *testing.T, method string, ret []byte) (consumed, refunded *uint256.Int) {
	t.Helper()
	values, err := swapcall.SwapCallABI.Unpack(method, ret)
	require.NoError(t, err)
	require.Len(t, values, 2)
	return uint256.MustFromBig(values[0].(*big.Int)), uint256.MustFromBig(values[1].(*big.Int))
}

// balances captures every balance an operation can touch.
type balances struct {
	native map[common.Address]*uint256.Int
	tokens map[common.Address]map[common.Address]*uint256.Int
}

func (e *testEnv) balances(accounts ...common.Address) balances {
	accounts = append(accounts, e.self, targetAddr)
	for _, ex := range e.market.Exchanges {
		accounts = append(accounts, ex.Address)
	}
	b := balances{
		native: make(map[common.Address]*uint256.Int),
		tokens: make(map[common.Address]map[common.Address]*uint256.Int),
	}
	for _, acct := range accounts {
		b.native[acct] = e.w.State.GetBalance(acct)
	}
	for _, token := range e.market.Tokens {
		b.tokens[token.Address] = make(map[common.Address]*uint256.Int)
		for _, acct := range accounts {
			b.tokens[token.Address][acct] = token.BalanceOf(e.w, acct)
		}
	}
	return b
}
