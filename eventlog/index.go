// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package eventlog indexes SwapAndCall completion records into a key/value
// store so they can be listed per initiator.
package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/rlp"
	"github.com/luxfi/log"

	"github.com/luxfi/swaprouter/swapcall"
)

// Key layout: recordPrefix | initiator | block | txHash | logIndex
var recordPrefix = []byte("swc/")

var ErrCorruptRecord = errors.New("corrupt swap record")

// Record is one indexed SwapAndCall event.
type Record struct {
	BlockNumber    uint64
	TxHash         common.Hash
	LogIndex       uint64
	Initiator      common.Address
	FromAsset      common.Address
	ToAsset        common.Address
	Target         common.Address
	AmountIn       *big.Int
	AmountRefunded *big.Int
}

// Index stores the SwapAndCall events emitted by one orchestrator.
type Index struct {
	db     database.Database
	source common.Address
	log    log.Logger
}

// New creates an index over db for events emitted by source.
func New(db database.Database, source common.Address, logger log.Logger) *Index {
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}
	return &Index{db: db, source: source, log: logger}
}

func recordKey(r *Record) []byte {
	key := make([]byte, 0, len(recordPrefix)+common.AddressLength+8+common.HashLength+8)
	key = append(key, recordPrefix...)
	key = append(key, r.Initiator.Bytes()...)
	key = binary.BigEndian.AppendUint64(key, r.BlockNumber)
	key = append(key, r.TxHash.Bytes()...)
	key = binary.BigEndian.AppendUint64(key, r.LogIndex)
	return key
}

func initiatorPrefix(initiator common.Address) []byte {
	prefix := make([]byte, 0, len(recordPrefix)+common.AddressLength)
	prefix = append(prefix, recordPrefix...)
	return append(prefix, initiator.Bytes()...)
}

// Ingest stores every SwapAndCall event in logs emitted by the source and
// returns how many were stored. Other logs are skipped.
func (x *Index) Ingest(logs []*ethtypes.Log) (int, error) {
	batch := x.db.NewBatch()
	stored := 0
	for _, lg := range logs {
		if lg.Address != x.source || len(lg.Topics) == 0 || lg.Topics[0] != swapcall.SwapAndCallTopic {
			continue
		}
		ev, err := swapcall.ParseSwapAndCall(lg)
		if err != nil {
			return 0, fmt.Errorf("log %d of tx %s: %w", lg.Index, lg.TxHash.Hex(), err)
		}
		r := &Record{
			BlockNumber:    lg.BlockNumber,
			TxHash:         lg.TxHash,
			LogIndex:       uint64(lg.Index),
			Initiator:      ev.Initiator,
			FromAsset:      ev.FromAsset.Address,
			ToAsset:        ev.ToAsset.Address,
			Target:         ev.TargetContract,
			AmountIn:       ev.AmountIn.ToBig(),
			AmountRefunded: ev.AmountRefunded.ToBig(),
		}
		value, err := rlp.EncodeToBytes(r)
		if err != nil {
			return 0, err
		}
		if err := batch.Put(recordKey(r), value); err != nil {
			return 0, err
		}
		stored++
	}
	if stored == 0 {
		return 0, nil
	}
	if err := batch.Write(); err != nil {
		return 0, err
	}
	x.log.Debug("eventlog: ingested swap records", "count", stored)
	return stored, nil
}

// ByInitiator lists the records of initiator in block order.
func (x *Index) ByInitiator(initiator common.Address) ([]Record, error) {
	it := x.db.NewIteratorWithPrefix(initiatorPrefix(initiator))
	defer it.Release()

	var records []Record
	for it.Next() {
		var r Record
		if err := rlp.DecodeBytes(it.Value(), &r); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
		records = append(records, r)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return records, nil
}

// Totals sums what initiator supplied and was refunded across its records.
func (x *Index) Totals(initiator common.Address) (supplied, refunded *big.Int, err error) {
	records, err := x.ByInitiator(initiator)
	if err != nil {
		return nil, nil, err
	}
	supplied, refunded = new(big.Int), new(big.Int)
	for _, r := range records {
		supplied.Add(supplied, r.AmountIn)
		refunded.Add(refunded, r.AmountRefunded)
	}
	return supplied, refunded, nil
}
