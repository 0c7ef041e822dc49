package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/omni/bridge-relay/contract/bridgeabi"
	"github.com/omni/bridge-relay/ethclient"
)

// BridgeContract wraps the destination-side bridge. Submission is simulated:
// calldata is packed against the real ABI and dry-run through eth_call, no key
// management or broadcast happens here.
type BridgeContract struct {
	*Contract
}

func NewBridgeContract(client ethclient.Client, addr common.Address) *BridgeContract {
	return &BridgeContract{NewContract(client, addr, bridgeabi.BridgeABI)}
}

// UnlockTokens submits the unlock action for one relayed event. The returned
// reference hash is deterministic for a given (contract, recipient, amount,
// nonce) tuple, so replays map to the same reference.
func (c *BridgeContract) UnlockTokens(ctx context.Context, recipient common.Address, amount *big.Int, sourceNonce uint64) (common.Hash, error) {
	data, err := c.Pack("unlockTokens", recipient, amount, new(big.Int).SetUint64(sourceNonce))
	if err != nil {
		return common.Hash{}, err
	}
	_, err = c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.address,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("cannot submit unlockTokens(...): %w", err)
	}
	return crypto.Keccak256Hash(append(c.address.Bytes(), data...)), nil
}
