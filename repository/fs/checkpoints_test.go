package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omni/bridge-relay/db"
	"github.com/omni/bridge-relay/entity"
	"github.com/omni/bridge-relay/repository/fs"
)

var bridgeAddr = common.HexToAddress("0x1234567890123456789012345678901234567890")

func TestCheckpointsRepoRoundtrip(t *testing.T) {
	t.Parallel()

	repo, err := fs.NewCheckpointsRepo(t.TempDir())
	require.NoError(t, err)

	checkpoint := &entity.Checkpoint{
		ChainID:            "11155111",
		Address:            bridgeAddr,
		LastProcessedBlock: 1000100,
	}
	require.NoError(t, repo.Ensure(context.Background(), checkpoint))
	require.NotNil(t, checkpoint.UpdatedAt)

	got, err := repo.GetByChainIDAndAddress(context.Background(), "11155111", bridgeAddr)
	require.NoError(t, err)
	require.Equal(t, "11155111", got.ChainID)
	require.Equal(t, bridgeAddr, got.Address)
	require.EqualValues(t, 1000100, got.LastProcessedBlock)
}

func TestCheckpointsRepoNotFound(t *testing.T) {
	t.Parallel()

	repo, err := fs.NewCheckpointsRepo(t.TempDir())
	require.NoError(t, err)

	_, err = repo.GetByChainIDAndAddress(context.Background(), "11155111", bridgeAddr)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestCheckpointsRepoOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := fs.NewCheckpointsRepo(dir)
	require.NoError(t, err)

	checkpoint := &entity.Checkpoint{ChainID: "1", Address: bridgeAddr, LastProcessedBlock: 100}
	require.NoError(t, repo.Ensure(context.Background(), checkpoint))
	checkpoint.LastProcessedBlock = 200
	require.NoError(t, repo.Ensure(context.Background(), checkpoint))

	got, err := repo.GetByChainIDAndAddress(context.Background(), "1", bridgeAddr)
	require.NoError(t, err)
	require.EqualValues(t, 200, got.LastProcessedBlock)

	// no temporary leftovers after the atomic rename
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "checkpoint-1-0x1234567890123456789012345678901234567890.json", entries[0].Name())
}

func TestCheckpointsRepoIsolatedPerContract(t *testing.T) {
	t.Parallel()

	repo, err := fs.NewCheckpointsRepo(t.TempDir())
	require.NoError(t, err)

	otherAddr := common.HexToAddress("0x0987654321098765432109876543210987654321")
	require.NoError(t, repo.Ensure(context.Background(), &entity.Checkpoint{ChainID: "1", Address: bridgeAddr, LastProcessedBlock: 100}))
	require.NoError(t, repo.Ensure(context.Background(), &entity.Checkpoint{ChainID: "1", Address: otherAddr, LastProcessedBlock: 500}))
	require.NoError(t, repo.Ensure(context.Background(), &entity.Checkpoint{ChainID: "137", Address: bridgeAddr, LastProcessedBlock: 900}))

	got, err := repo.GetByChainIDAndAddress(context.Background(), "1", bridgeAddr)
	require.NoError(t, err)
	require.EqualValues(t, 100, got.LastProcessedBlock)

	got, err = repo.GetByChainIDAndAddress(context.Background(), "137", bridgeAddr)
	require.NoError(t, err)
	require.EqualValues(t, 900, got.LastProcessedBlock)

	_, err = repo.GetByChainIDAndAddress(context.Background(), "137", otherAddr)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestCheckpointsRepoFileFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo, err := fs.NewCheckpointsRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Ensure(context.Background(), &entity.Checkpoint{ChainID: "1", Address: bridgeAddr, LastProcessedBlock: 1000100}))

	blob, err := os.ReadFile(filepath.Join(dir, "checkpoint-1-0x1234567890123456789012345678901234567890.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"last_processed_block": 1000100}`, string(blob))
}
