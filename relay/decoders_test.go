package relay_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/omni/bridge-relay/contract"
	"github.com/omni/bridge-relay/contract/bridgeabi"
	"github.com/omni/bridge-relay/entity"
	"github.com/omni/bridge-relay/relay"
)

var (
	bridgeAddr = common.HexToAddress("0x1234567890123456789012345678901234567890")
	aliceAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

func makeTokensLockedLog(t *testing.T, blockNumber uint64, txSeed string, logIndex uint, from common.Address, amount, nonce *big.Int) types.Log {
	t.Helper()
	data, err := bridgeabi.BridgeABI.Events["TokensLocked"].Inputs.NonIndexed().Pack(amount, nonce)
	require.NoError(t, err)
	return types.Log{
		Address:     bridgeAddr,
		Topics:      []common.Hash{bridgeabi.TokensLockedEventSignature, from.Hash(), common.BigToHash(big.NewInt(137))},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      crypto.Keccak256Hash([]byte(txSeed)),
		Index:       logIndex,
	}
}

func TestDecodeTokensLocked(t *testing.T) {
	t.Parallel()

	bridge := contract.NewContract(nil, bridgeAddr, bridgeabi.BridgeABI)
	log := makeTokensLockedLog(t, 1000055, "0xabc", 2, aliceAddr, big.NewInt(100000000), big.NewInt(42))

	event, err := relay.DecodeTokensLocked(bridge, log)
	require.NoError(t, err)
	require.Equal(t, &entity.RawEvent{
		BlockNumber:     1000055,
		TransactionHash: log.TxHash,
		LogIndex:        2,
		Sender:          aliceAddr,
		Recipient:       aliceAddr,
		Amount:          big.NewInt(100000000),
		Nonce:           42,
	}, event)
}

func TestDecodeTokensLockedMalformed(t *testing.T) {
	t.Parallel()

	bridge := contract.NewContract(nil, bridgeAddr, bridgeabi.BridgeABI)

	t.Run("unknown event topic", func(t *testing.T) {
		t.Parallel()
		log := makeTokensLockedLog(t, 100, "0xabc", 0, aliceAddr, big.NewInt(1), big.NewInt(1))
		log.Topics[0] = crypto.Keccak256Hash([]byte("SomethingElse(uint256)"))
		_, err := relay.DecodeTokensLocked(bridge, log)
		require.ErrorIs(t, err, relay.ErrMalformedEvent)
	})

	t.Run("truncated data", func(t *testing.T) {
		t.Parallel()
		log := makeTokensLockedLog(t, 100, "0xabc", 0, aliceAddr, big.NewInt(1), big.NewInt(1))
		log.Data = log.Data[:16]
		_, err := relay.DecodeTokensLocked(bridge, log)
		require.ErrorIs(t, err, relay.ErrMalformedEvent)
	})

	t.Run("empty sender", func(t *testing.T) {
		t.Parallel()
		log := makeTokensLockedLog(t, 100, "0xabc", 0, common.Address{}, big.NewInt(1), big.NewInt(1))
		_, err := relay.DecodeTokensLocked(bridge, log)
		require.ErrorIs(t, err, relay.ErrMalformedEvent)
	})
}
