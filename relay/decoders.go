package relay

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/omni/bridge-relay/contract"
	"github.com/omni/bridge-relay/contract/bridgeabi"
	"github.com/omni/bridge-relay/entity"
)

// ErrMalformedEvent marks an event that can never be relayed. Such events are
// skipped and remembered, they do not fail the containing batch.
var ErrMalformedEvent = errors.New("malformed event")

// DecodeTokensLocked parses a raw TokensLocked log into a validated RawEvent.
// The locker becomes the recipient on the destination side.
func DecodeTokensLocked(bridge *contract.Contract, log types.Log) (*entity.RawEvent, error) {
	signature, values, err := bridge.ParseLog(log.Topics, log.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedEvent, err)
	}
	if signature != bridgeabi.TokensLocked {
		return nil, fmt.Errorf("%w: unexpected event %q", ErrMalformedEvent, signature)
	}
	from, ok := values["from"].(common.Address)
	if !ok || from == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing or empty sender", ErrMalformedEvent)
	}
	amount, ok := values["amount"].(*big.Int)
	if !ok || amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: missing or negative amount", ErrMalformedEvent)
	}
	nonce, ok := values["nonce"].(*big.Int)
	if !ok || nonce == nil || !nonce.IsUint64() {
		return nil, fmt.Errorf("%w: missing or invalid nonce", ErrMalformedEvent)
	}
	return &entity.RawEvent{
		BlockNumber:     uint(log.BlockNumber),
		TransactionHash: log.TxHash,
		LogIndex:        uint(log.Index),
		Sender:          from,
		Recipient:       from,
		Amount:          amount,
		Nonce:           nonce.Uint64(),
	}, nil
}
