package repository

import (
	"github.com/omni/bridge-relay/db"
	"github.com/omni/bridge-relay/entity"
	"github.com/omni/bridge-relay/repository/fs"
	"github.com/omni/bridge-relay/repository/postgres"
)

type Repo struct {
	Checkpoints entity.CheckpointsRepo
}

func NewPostgresRepo(db *db.DB) *Repo {
	return &Repo{
		Checkpoints: postgres.NewCheckpointsRepo("checkpoints", db),
	}
}

func NewFilesystemRepo(stateDir string) (*Repo, error) {
	checkpoints, err := fs.NewCheckpointsRepo(stateDir)
	if err != nil {
		return nil, err
	}
	return &Repo{
		Checkpoints: checkpoints,
	}, nil
}
