package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKey uniquely identifies a single log occurrence on the source chain.
type EventKey struct {
	TransactionHash common.Hash
	LogIndex        uint
}

func (k EventKey) String() string {
	return fmt.Sprintf("%s:%d", k.TransactionHash, k.LogIndex)
}

// RawEvent is a decoded TokensLocked log. It is consumed exactly once per
// process by the relay and never stored, the checkpoint alone carries the
// durable "already processed" state.
type RawEvent struct {
	BlockNumber     uint
	TransactionHash common.Hash
	LogIndex        uint
	Sender          common.Address
	Recipient       common.Address
	Amount          *big.Int
	Nonce           uint64
}

func (e *RawEvent) Key() EventKey {
	return EventKey{TransactionHash: e.TransactionHash, LogIndex: e.LogIndex}
}

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusSubmitted ActionStatus = "submitted"
	ActionStatusFailed    ActionStatus = "failed"
)

// RelayAction is the destination-side unlock derived from exactly one
// RawEvent. Nonce is carried over unchanged as the idempotency token.
type RelayAction struct {
	Recipient   common.Address
	Amount      *big.Int
	Nonce       uint64
	GasPrice    *big.Int
	Status      ActionStatus
	ReferenceID common.Hash
}
