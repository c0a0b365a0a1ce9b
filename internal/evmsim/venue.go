// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evmsim

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/swaprouter/swapcall"
)

// Fee of the constant-product venue, in thousandths kept by the trader.
const (
	feeNumerator   = 997
	feeDenominator = 1000
)

// Factory is the venue registry: one exchange per token.
type Factory struct {
	Address common.Address
}

// NewFactory deploys a registry at addr.
func NewFactory(w *World, addr common.Address) *Factory {
	f := &Factory{Address: addr}
	w.Deploy(addr, f)
	return f
}

func exchangeKey(token common.Address) common.Hash {
	return slot("exch", token.Bytes())
}

// Register binds token to exchange.
func (f *Factory) Register(w *World, token, exchange common.Address) {
	var v common.Hash
	copy(v[12:], exchange.Bytes())
	w.State.SetState(f.Address, exchangeKey(token), v)
}

// ExchangeFor reads the exchange bound to token.
func (f *Factory) ExchangeFor(w *World, token common.Address) common.Address {
	v := w.State.GetState(f.Address, exchangeKey(token))
	return common.BytesToAddress(v[12:])
}

func (f *Factory) Call(ctx *CallContext) ([]byte, error) {
	name, args, err := decode(swapcall.VenueRegistryABI, ctx.Input)
	if err != nil {
		return nil, err
	}
	return swapcall.VenueRegistryABI.PackOutput(name, f.ExchangeFor(ctx.World, argAddress(args, 0)))
}

// Exchange is a constant-product native/token venue with exact-output
// trades. Reserves are its native balance and its token balance.
type Exchange struct {
	Address common.Address
	Token   *Token
	Factory *Factory

	// ShortDelivery makes the exchange deliver one unit less than was
	// bought, imitating a fee-on-transfer token.
	ShortDelivery bool
}

// NewExchange deploys an exchange for token, registers it and seeds its
// reserves.
func NewExchange(w *World, addr common.Address, token *Token, factory *Factory, nativeReserve, tokenReserve *uint256.Int) *Exchange {
	e := &Exchange{Address: addr, Token: token, Factory: factory}
	w.Deploy(addr, e)
	factory.Register(w, token.Address, addr)
	w.Fund(addr, nativeReserve)
	token.Mint(w, addr, tokenReserve)
	return e
}

// OutputPrice is the input needed to take out outputAmount from reserves
// inputReserve / outputReserve after the fee.
func OutputPrice(outputAmount, inputReserve, outputReserve *uint256.Int) (*uint256.Int, bool) {
	if inputReserve.IsZero() || !outputReserve.Gt(outputAmount) {
		return nil, false
	}
	numerator := new(uint256.Int).Mul(inputReserve, outputAmount)
	numerator.Mul(numerator, uint256.NewInt(feeDenominator))
	denominator := new(uint256.Int).Sub(outputReserve, outputAmount)
	denominator.Mul(denominator, uint256.NewInt(feeNumerator))
	price := numerator.Div(numerator, denominator)
	return price.AddUint64(price, 1), true
}

// EthToTokenPrice quotes the native needed to buy tokensBought.
func (e *Exchange) EthToTokenPrice(w *World, tokensBought *uint256.Int) (*uint256.Int, bool) {
	return OutputPrice(tokensBought, w.State.GetBalance(e.Address), e.Token.BalanceOf(w, e.Address))
}

// TokenToEthPrice quotes the tokens needed to buy ethBought.
func (e *Exchange) TokenToEthPrice(w *World, ethBought *uint256.Int) (*uint256.Int, bool) {
	return OutputPrice(ethBought, e.Token.BalanceOf(w, e.Address), w.State.GetBalance(e.Address))
}

func (e *Exchange) Call(ctx *CallContext) ([]byte, error) {
	if len(ctx.Input) == 0 {
		return nil, nil
	}
	name, args, err := decode(swapcall.VenueABI, ctx.Input)
	if err != nil {
		return nil, err
	}
	w := ctx.World
	switch name {
	case "getEthToTokenOutputPrice":
		price, ok := e.EthToTokenPrice(w, argAmount(args, 0))
		if !ok {
			return nil, Revert("exchange: insufficient reserves")
		}
		return packAmount(swapcall.VenueABI, name, price)
	case "getTokenToEthOutputPrice":
		price, ok := e.TokenToEthPrice(w, argAmount(args, 0))
		if !ok {
			return nil, Revert("exchange: insufficient reserves")
		}
		return packAmount(swapcall.VenueABI, name, price)
	case "ethToTokenSwapOutput":
		sold, err := e.ethToTokenOutput(ctx, argAmount(args, 0), argAmount(args, 1), ctx.Caller)
		if err != nil {
			return nil, err
		}
		return packAmount(swapcall.VenueABI, name, sold)
	case "ethToTokenTransferOutput":
		sold, err := e.ethToTokenOutput(ctx, argAmount(args, 0), argAmount(args, 1), argAddress(args, 2))
		if err != nil {
			return nil, err
		}
		return packAmount(swapcall.VenueABI, name, sold)
	case "tokenToEthSwapOutput":
		sold, err := e.tokenToEthOutput(ctx, argAmount(args, 0), argAmount(args, 1), argAmount(args, 2))
		if err != nil {
			return nil, err
		}
		return packAmount(swapcall.VenueABI, name, sold)
	case "tokenToTokenSwapOutput":
		sold, err := e.tokenToTokenOutput(ctx, argAmount(args, 0), argAmount(args, 1), argAmount(args, 2), argAmount(args, 3), argAddress(args, 4))
		if err != nil {
			return nil, err
		}
		return packAmount(swapcall.VenueABI, name, sold)
	default:
		return nil, Revert("exchange: unsupported method %s", name)
	}
}

func (e *Exchange) checkDeadline(w *World, deadline *uint256.Int) error {
	if deadline.Lt(uint256.NewInt(w.Block.Time)) {
		return Revert("exchange: deadline passed")
	}
	return nil
}

func (e *Exchange) ethToTokenOutput(ctx *CallContext, tokensBought, deadline *uint256.Int, recipient common.Address) (*uint256.Int, error) {
	w := ctx.World
	if err := e.checkDeadline(w, deadline); err != nil {
		return nil, err
	}
	if tokensBought.IsZero() || ctx.Value.IsZero() {
		return nil, Revert("exchange: zero amount")
	}
	// The attached value is already part of the balance.
	nativeReserve := new(uint256.Int).Sub(w.State.GetBalance(e.Address), ctx.Value)
	sold, ok := OutputPrice(tokensBought, nativeReserve, e.Token.BalanceOf(w, e.Address))
	if !ok {
		return nil, Revert("exchange: insufficient reserves")
	}
	if sold.Gt(ctx.Value) {
		return nil, Revert("exchange: insufficient native sent")
	}
	if refund := new(uint256.Int).Sub(ctx.Value, sold); !refund.IsZero() {
		if _, err := ctx.Call(ctx.Caller, nil, refund); err != nil {
			return nil, err
		}
	}
	if err := e.deliver(ctx, recipient, tokensBought); err != nil {
		return nil, err
	}
	return sold, nil
}

func (e *Exchange) tokenToEthOutput(ctx *CallContext, ethBought, maxTokens, deadline *uint256.Int) (*uint256.Int, error) {
	w := ctx.World
	if err := e.checkDeadline(w, deadline); err != nil {
		return nil, err
	}
	sold, ok := e.TokenToEthPrice(w, ethBought)
	if !ok {
		return nil, Revert("exchange: insufficient reserves")
	}
	if sold.Gt(maxTokens) {
		return nil, Revert("exchange: max tokens exceeded")
	}
	if err := e.pull(ctx, ctx.Caller, sold); err != nil {
		return nil, err
	}
	amount := ethBought
	if e.ShortDelivery {
		amount = new(uint256.Int).SubUint64(ethBought, 1)
	}
	if _, err := ctx.Call(ctx.Caller, nil, amount); err != nil {
		return nil, err
	}
	return sold, nil
}

func (e *Exchange) tokenToTokenOutput(ctx *CallContext, tokensBought, maxTokensSold, maxEthSold, deadline *uint256.Int, tokenAddr common.Address) (*uint256.Int, error) {
	w := ctx.World
	if err := e.checkDeadline(w, deadline); err != nil {
		return nil, err
	}
	other := e.Factory.ExchangeFor(w, tokenAddr)
	if other == (common.Address{}) || other == e.Address {
		return nil, Revert("exchange: no exchange for %s", tokenAddr.Hex())
	}

	input, err := swapcall.VenueABI.Pack("getEthToTokenOutputPrice", tokensBought.ToBig())
	if err != nil {
		return nil, err
	}
	ret, err := ctx.StaticCall(other, input)
	if err != nil {
		return nil, err
	}
	if len(ret) < 32 {
		return nil, Revert("exchange: bad quote from %s", other.Hex())
	}
	ethBought := new(uint256.Int).SetBytes(ret[:32])

	sold, ok := e.TokenToEthPrice(w, ethBought)
	if !ok {
		return nil, Revert("exchange: insufficient reserves")
	}
	if sold.Gt(maxTokensSold) || ethBought.Gt(maxEthSold) {
		return nil, Revert("exchange: max tokens exceeded")
	}
	if err := e.pull(ctx, ctx.Caller, sold); err != nil {
		return nil, err
	}

	input, err = swapcall.VenueABI.Pack("ethToTokenTransferOutput", tokensBought.ToBig(), deadline.ToBig(), ctx.Caller)
	if err != nil {
		return nil, err
	}
	if _, err := ctx.Call(other, input, ethBought); err != nil {
		return nil, err
	}
	return sold, nil
}

func (e *Exchange) pull(ctx *CallContext, from common.Address, amount *uint256.Int) error {
	input, err := swapcall.ERC20ABI.Pack("transferFrom", from, e.Address, amount.ToBig())
	if err != nil {
		return err
	}
	_, err = ctx.Call(e.Token.Address, input, nil)
	return err
}

func (e *Exchange) deliver(ctx *CallContext, to common.Address, amount *uint256.Int) error {
	if e.ShortDelivery {
		amount = new(uint256.Int).SubUint64(amount, 1)
	}
	input, err := swapcall.ERC20ABI.Pack("transfer", to, amount.ToBig())
	if err != nil {
		return err
	}
	_, err = ctx.Call(e.Token.Address, input, nil)
	return err
}
