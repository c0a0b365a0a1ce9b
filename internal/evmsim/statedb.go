// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evmsim

import (
	"maps"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/swaprouter/contract"
)

var _ contract.StateDB = (*StateDB)(nil)

type account struct {
	balance  *uint256.Int
	storage  map[common.Hash]common.Hash
	codeSize int
}

func (a *account) copy() *account {
	return &account{
		balance:  a.balance.Clone(),
		storage:  maps.Clone(a.storage),
		codeSize: a.codeSize,
	}
}

type snapshot struct {
	accounts map[common.Address]*account
	logs     int
}

// StateDB is an in-memory state with journaled snapshots. Each snapshot is a
// full copy, which is fine for the handful of accounts a simulation touches.
type StateDB struct {
	accounts  map[common.Address]*account
	logs      []*ethtypes.Log
	snapshots []snapshot
	txHash    common.Hash

	// frozen is the depth of static calls in progress. Writes while frozen
	// are recorded as violations.
	frozen    int
	violation bool
}

// NewStateDB creates an empty state.
func NewStateDB() *StateDB {
	return &StateDB{accounts: make(map[common.Address]*account)}
}

func (s *StateDB) get(addr common.Address) *account {
	return s.accounts[addr]
}

func (s *StateDB) getOrCreate(addr common.Address) *account {
	acct, ok := s.accounts[addr]
	if !ok {
		acct = &account{balance: uint256.NewInt(0), storage: make(map[common.Hash]common.Hash)}
		s.accounts[addr] = acct
	}
	return acct
}

func (s *StateDB) write() {
	if s.frozen > 0 {
		s.violation = true
	}
}

func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if acct := s.get(addr); acct != nil {
		return acct.storage[key]
	}
	return common.Hash{}
}

func (s *StateDB) SetState(addr common.Address, key common.Hash, value common.Hash) common.Hash {
	s.write()
	acct := s.getOrCreate(addr)
	prev := acct.storage[key]
	if value == (common.Hash{}) {
		delete(acct.storage, key)
	} else {
		acct.storage[key] = value
	}
	return prev
}

func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	if acct := s.get(addr); acct != nil {
		return acct.balance.Clone()
	}
	return uint256.NewInt(0)
}

func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	s.write()
	acct := s.getOrCreate(addr)
	prev := *acct.balance
	acct.balance = new(uint256.Int).Add(acct.balance, amount)
	return prev
}

func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	s.write()
	acct := s.getOrCreate(addr)
	prev := *acct.balance
	if acct.balance.Lt(amount) {
		panic("evmsim: balance underflow on " + addr.Hex())
	}
	acct.balance = new(uint256.Int).Sub(acct.balance, amount)
	return prev
}

func (s *StateDB) Exist(addr common.Address) bool {
	_, ok := s.accounts[addr]
	return ok
}

func (s *StateDB) CreateAccount(addr common.Address) {
	s.write()
	s.getOrCreate(addr)
}

func (s *StateDB) GetCodeSize(addr common.Address) int {
	if acct := s.get(addr); acct != nil {
		return acct.codeSize
	}
	return 0
}

// SetCodeSize marks addr as holding code of the given size.
func (s *StateDB) SetCodeSize(addr common.Address, size int) {
	s.getOrCreate(addr).codeSize = size
}

func (s *StateDB) AddLog(log *ethtypes.Log) {
	s.write()
	log.TxHash = s.txHash
	log.Index = uint(len(s.logs))
	s.logs = append(s.logs, log)
}

// Logs returns the logs emitted so far.
func (s *StateDB) Logs() []*ethtypes.Log {
	out := make([]*ethtypes.Log, len(s.logs))
	copy(out, s.logs)
	return out
}

// SetTxHash sets the hash stamped on subsequent logs.
func (s *StateDB) SetTxHash(h common.Hash) {
	s.txHash = h
}

func (s *StateDB) TxHash() common.Hash {
	return s.txHash
}

func (s *StateDB) Snapshot() int {
	accounts := make(map[common.Address]*account, len(s.accounts))
	for addr, acct := range s.accounts {
		accounts[addr] = acct.copy()
	}
	s.snapshots = append(s.snapshots, snapshot{accounts: accounts, logs: len(s.logs)})
	return len(s.snapshots) - 1
}

func (s *StateDB) RevertToSnapshot(id int) {
	if id < 0 || id >= len(s.snapshots) {
		panic("evmsim: invalid snapshot id")
	}
	snap := s.snapshots[id]
	s.accounts = snap.accounts
	s.logs = s.logs[:snap.logs]
	s.snapshots = s.snapshots[:id]
}

// freeze marks the start of a static call.
func (s *StateDB) freeze() {
	s.frozen++
}

// thaw ends a static call and reports whether it attempted a write.
func (s *StateDB) thaw() bool {
	s.frozen--
	violated := s.violation
	if s.frozen == 0 {
		s.violation = false
	}
	return violated
}
