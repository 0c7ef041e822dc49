package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/bridge-relay/contract/abi"
	"github.com/omni/bridge-relay/ethclient"
)

type Contract struct {
	address common.Address
	client  ethclient.Client
	abi     abi.ABI
}

func NewContract(client ethclient.Client, addr common.Address, abi abi.ABI) *Contract {
	return &Contract{addr, client, abi}
}

func (c *Contract) Address() common.Address {
	return c.address
}

// Pack encodes a method call into raw calldata.
func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode abi calldata: %w", err)
	}
	return data, nil
}

func (c *Contract) ParseLog(topics []common.Hash, data []byte) (string, map[string]interface{}, error) {
	return c.abi.ParseLog(topics, data)
}
