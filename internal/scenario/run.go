// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scenario

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/swaprouter/eventlog"
	"github.com/luxfi/swaprouter/internal/evmsim"
	"github.com/luxfi/swaprouter/swapcall"
)

// Result is the outcome of one simulated operation.
type Result struct {
	Method    string
	Route     swapcall.Route
	GasUsed   uint64
	Consumed  *uint256.Int
	Refunded  *uint256.Int
	Threshold *uint256.Int
	Purchases uint64

	// Err is the operation's failure; RevertReason is set when the failure
	// carried an Error(string) revert.
	Err          error
	RevertReason string

	// Before and After hold the initiator's balance of every asset, keyed by
	// symbol or Native.
	Before map[string]*uint256.Int
	After  map[string]*uint256.Int

	Records []eventlog.Record
}

// Succeeded returns true if the operation completed.
func (r *Result) Succeeded() bool {
	return r.Err == nil
}

type simulation struct {
	s         *Scenario
	w         *evmsim.World
	market    *evmsim.Market
	initiator common.Address
}

func (sim *simulation) asset(name string) (common.Address, error) {
	if strings.EqualFold(name, Native) {
		return common.Address{}, nil
	}
	token, err := sim.market.Token(name)
	if err != nil {
		return common.Address{}, err
	}
	return token.Address, nil
}

func (sim *simulation) holdings() map[string]*uint256.Int {
	out := map[string]*uint256.Int{Native: sim.w.State.GetBalance(sim.initiator)}
	for symbol, token := range sim.market.Tokens {
		out[symbol] = token.BalanceOf(sim.w, sim.initiator)
	}
	return out
}

// Run builds the scenario's market, submits its operation from the initiator
// and reports the outcome. A failed operation is reported in Result.Err; the
// returned error is reserved for scenarios that cannot be set up.
func Run(s *Scenario, logger log.Logger) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	w := evmsim.NewWorld()
	w.SetGasPrice(mustAmount(s.GasPrice))
	sim := &simulation{
		s:         s,
		w:         w,
		market:    evmsim.NewMarket(w, mustAddress(s.Registry)),
		initiator: mustAddress(s.Initiator),
	}
	for _, m := range s.Markets {
		sim.market.List(m.Symbol, mustAddress(m.Token), mustAddress(m.Exchange), mustAmount(m.NativeReserve), mustAmount(m.TokenReserve))
	}

	c := swapcall.NewContract(logger)
	w.Install(swapcall.ContractAddress, c)
	cfg := &swapcall.Config{
		VenueRegistry:    mustAddress(s.Registry),
		ConsumptionCheck: s.ConsumptionCheck,
	}
	if s.Admin != "" {
		cfg.Admin = mustAddress(s.Admin)
	}
	if err := swapcall.Module.Configure(nil, cfg, w.State, w.GetBlockContext()); err != nil {
		return nil, err
	}

	op, err := sim.operation()
	if err != nil {
		return nil, err
	}
	targetAsset, err := sim.asset(s.Target.Asset)
	if err != nil {
		return nil, err
	}
	mode, _ := parseMode(s.Target.Mode)
	target := evmsim.NewTarget(w, op.TargetContract, targetAsset, mustAmount(s.Target.Price), mode)

	w.Fund(sim.initiator, mustAmount(s.Funds))
	amountIn := mustAmount(s.Operation.AmountIn)
	if !op.SourceAsset.IsNative() {
		token, _ := sim.market.Token(s.Operation.Source)
		token.Mint(w, sim.initiator, amountIn)
		token.SetAllowance(w, sim.initiator, swapcall.ContractAddress, amountIn)
	}

	method, input, err := swapcall.EncodeOperation(op)
	if err != nil {
		return nil, err
	}
	route, _ := op.Route()
	value := uint256.NewInt(0)
	if op.SourceAsset.IsNative() {
		value = amountIn
	}

	res := &Result{
		Method:    method,
		Route:     route,
		Threshold: swapcall.RefundPolicy{}.Threshold(w.GetTxContext().GasPrice()),
		Before:    sim.holdings(),
	}
	ret, gasUsed, err := w.Transact(sim.initiator, swapcall.ContractAddress, input, value, s.Gas)
	res.GasUsed = gasUsed
	res.After = sim.holdings()
	res.Purchases = target.Purchases(w)
	if err != nil {
		res.Err = err
		if reason, ok := evmsim.DecodeRevert(ret); ok {
			res.RevertReason = reason
		}
		return res, nil
	}

	values, err := swapcall.SwapCallABI.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	res.Consumed = uint256.MustFromBig(values[0].(*big.Int))
	res.Refunded = uint256.MustFromBig(values[1].(*big.Int))

	index := eventlog.New(memdb.New(), swapcall.ContractAddress, logger)
	if _, err := index.Ingest(w.State.Logs()); err != nil {
		return nil, err
	}
	if res.Records, err = index.ByInitiator(sim.initiator); err != nil {
		return nil, err
	}
	return res, nil
}

func (sim *simulation) operation() (*swapcall.Operation, error) {
	req := sim.s.Operation
	source, err := sim.asset(req.Source)
	if err != nil {
		return nil, err
	}
	targetAsset, err := sim.asset(req.Target)
	if err != nil {
		return nil, err
	}
	targetContract := mustAddress(sim.s.Target.Address)

	payload := evmsim.TargetABI.Methods["purchase"].ID
	if strings.EqualFold(sim.s.Target.Asset, Native) {
		payload = evmsim.TargetABI.Methods["purchaseWithNative"].ID
	}

	op := &swapcall.Operation{
		SourceAsset:    swapcall.TokenCurrency(source),
		TargetAsset:    swapcall.TokenCurrency(targetAsset),
		TargetContract: targetContract,
		CallPayload:    common.CopyBytes(payload),
	}
	if !op.SourceAsset.IsNative() {
		op.SourceAmountIn = mustAmount(req.AmountIn)
	}
	if req.TargetAmount == "" {
		op.PriceQuery = common.CopyBytes(evmsim.TargetABI.Methods["price"].ID)
	} else {
		op.TargetAmount = mustAmount(req.TargetAmount)
	}
	if _, err := op.Route(); err != nil {
		return nil, errors.Join(ErrInvalidScenario, err)
	}
	return op, nil
}
