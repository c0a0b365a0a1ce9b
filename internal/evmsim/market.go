// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evmsim

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Market is a venue registry with one exchange per listed token.
type Market struct {
	World     *World
	Factory   *Factory
	Tokens    map[string]*Token
	Exchanges map[string]*Exchange
}

// NewMarket deploys an empty venue registry at registry.
func NewMarket(w *World, registry common.Address) *Market {
	return &Market{
		World:     w,
		Factory:   NewFactory(w, registry),
		Tokens:    make(map[string]*Token),
		Exchanges: make(map[string]*Exchange),
	}
}

// List deploys token symbol at tokenAddr and an exchange for it at
// exchangeAddr seeded with the given reserves.
func (m *Market) List(symbol string, tokenAddr, exchangeAddr common.Address, nativeReserve, tokenReserve *uint256.Int) (*Token, *Exchange) {
	token := NewToken(m.World, tokenAddr, symbol)
	exchange := NewExchange(m.World, exchangeAddr, token, m.Factory, nativeReserve, tokenReserve)
	m.Tokens[symbol] = token
	m.Exchanges[symbol] = exchange
	return token, exchange
}

// Token returns the listed token with symbol.
func (m *Market) Token(symbol string) (*Token, error) {
	token, ok := m.Tokens[symbol]
	if !ok {
		return nil, fmt.Errorf("token %q is not listed", symbol)
	}
	return token, nil
}
