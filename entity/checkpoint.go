package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Checkpoint is the durable scan cursor for a single watched contract.
// LastProcessedBlock never decreases and never runs ahead of the highest block
// whose events were fully relayed.
type Checkpoint struct {
	ChainID            string         `db:"chain_id" json:"chain_id"`
	Address            common.Address `db:"address" json:"address"`
	LastProcessedBlock uint           `db:"last_processed_block" json:"last_processed_block"`
	CreatedAt          *time.Time     `db:"created_at" json:"-"`
	UpdatedAt          *time.Time     `db:"updated_at" json:"-"`
}

type CheckpointsRepo interface {
	Ensure(ctx context.Context, checkpoint *Checkpoint) error
	GetByChainIDAndAddress(ctx context.Context, chainID string, addr common.Address) (*Checkpoint, error)
}
