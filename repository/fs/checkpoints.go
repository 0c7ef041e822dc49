package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/bridge-relay/db"
	"github.com/omni/bridge-relay/entity"
)

// checkpointsRepo persists one checkpoint per watched contract as a small
// JSON file. Saving writes to a temporary file in the same directory and
// renames it over the destination, a partially written checkpoint is never
// observable after a crash.
type checkpointsRepo struct {
	dir string
}

type checkpointRecord struct {
	LastProcessedBlock uint `json:"last_processed_block"`
}

func NewCheckpointsRepo(dir string) (entity.CheckpointsRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("can't create state directory: %w", err)
	}
	return &checkpointsRepo{dir: dir}, nil
}

func (r *checkpointsRepo) path(chainID string, addr common.Address) string {
	name := fmt.Sprintf("checkpoint-%s-%s.json", chainID, strings.ToLower(addr.Hex()))
	return filepath.Join(r.dir, name)
}

func (r *checkpointsRepo) Ensure(_ context.Context, checkpoint *entity.Checkpoint) error {
	blob, err := json.Marshal(checkpointRecord{LastProcessedBlock: checkpoint.LastProcessedBlock})
	if err != nil {
		return fmt.Errorf("can't marshal checkpoint: %w", err)
	}
	path := r.path(checkpoint.ChainID, checkpoint.Address)
	tmp, err := os.CreateTemp(r.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("can't create temporary checkpoint file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("can't write checkpoint: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("can't sync checkpoint: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("can't close checkpoint file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("can't replace checkpoint file: %w", err)
	}
	now := time.Now()
	checkpoint.UpdatedAt = &now
	return nil
}

func (r *checkpointsRepo) GetByChainIDAndAddress(_ context.Context, chainID string, addr common.Address) (*entity.Checkpoint, error) {
	blob, err := os.ReadFile(r.path(chainID, addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("can't read checkpoint file: %w", err)
	}
	record := new(checkpointRecord)
	if err = json.Unmarshal(blob, record); err != nil {
		return nil, fmt.Errorf("can't unmarshal checkpoint: %w", err)
	}
	return &entity.Checkpoint{
		ChainID:            chainID,
		Address:            addr,
		LastProcessedBlock: record.LastProcessedBlock,
	}, nil
}
