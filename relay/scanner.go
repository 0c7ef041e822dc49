package relay

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/omni/bridge-relay/config"
	"github.com/omni/bridge-relay/contract"
	"github.com/omni/bridge-relay/contract/bridgeabi"
	"github.com/omni/bridge-relay/db"
	"github.com/omni/bridge-relay/entity"
	"github.com/omni/bridge-relay/ethclient"
	"github.com/omni/bridge-relay/logging"
	"github.com/omni/bridge-relay/repository"
	"github.com/omni/bridge-relay/utils"
)

const defaultSyncedThreshold = 10

// Scan cycle stages reported in structured logs.
const (
	StageFetchHead         = "fetch_head"
	StageScanEvents        = "scan_events"
	StageDispatchBatch     = "dispatch_batch"
	StageAdvanceCheckpoint = "advance_checkpoint"
)

// Scanner drives the poll, compute-range, fetch-events, dispatch,
// advance-checkpoint cycle for one watched source contract. It is the single
// writer of the checkpoint; cycles never overlap and cancellation is honored
// only at cycle boundaries, so a shutdown cannot leave the checkpoint
// inconsistent with partially relayed events. The checkpoint, head block and
// synced flag are read by the presenter from other goroutines, mu guards them.
type Scanner struct {
	cfg                  *config.RelayConfig
	logger               logging.Logger
	client               ethclient.Client
	bridge               *contract.Contract
	relay                *EventRelay
	checkpoints          entity.CheckpointsRepo
	eventTopic           common.Hash
	backoff              *backoff
	mu                   sync.RWMutex
	checkpoint           *entity.Checkpoint
	headBlock            uint
	isSynced             bool
	syncedMetric         prometheus.Gauge
	headBlockMetric      prometheus.Gauge
	processedBlockMetric prometheus.Gauge
}

func NewScanner(ctx context.Context, logger logging.Logger, repo *repository.Repo, cfg *config.RelayConfig, client ethclient.Client, relay *EventRelay) (*Scanner, error) {
	srcAddr := cfg.Source.ContractAddress()
	checkpoint, err := repo.Checkpoints.GetByChainIDAndAddress(ctx, client.ChainID(), srcAddr)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to read checkpoint: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"chain_id":    client.ChainID(),
			"address":     srcAddr,
			"start_block": cfg.Source.StartBlock,
		}).Warn("checkpoint is not present, starting scanning from the configured start block")
		checkpoint = &entity.Checkpoint{
			ChainID:            client.ChainID(),
			Address:            srcAddr,
			LastProcessedBlock: cfg.Source.StartBlock - 1,
		}
	}
	commonLabels := prometheus.Labels{
		"relay_id": cfg.ID,
		"chain_id": client.ChainID(),
		"address":  srcAddr.String(),
	}
	return &Scanner{
		cfg:                  cfg,
		logger:               logger,
		client:               client,
		bridge:               contract.NewContract(client, srcAddr, bridgeabi.BridgeABI),
		relay:                relay,
		checkpoints:          repo.Checkpoints,
		checkpoint:           checkpoint,
		eventTopic:           crypto.Keccak256Hash([]byte(cfg.Source.EventSignature)),
		backoff:              newBackoff(cfg.Backoff.Initial.Duration, cfg.Backoff.Max.Duration),
		syncedMetric:         SyncedScanner.With(commonLabels),
		headBlockMetric:      LatestHeadBlock.With(commonLabels),
		processedBlockMetric: LatestProcessedBlock.With(commonLabels),
	}, nil
}

func (s *Scanner) IsSynced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSynced
}

// LastProcessedBlock returns the current durable checkpoint height.
func (s *Scanner) LastProcessedBlock() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoint.LastProcessedBlock
}

// Checkpoint returns a copy of the current checkpoint state.
func (s *Scanner) Checkpoint() entity.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.checkpoint
}

// Start runs scan cycles until ctx is cancelled. A failed cycle is retried
// with exponential backoff; a successful one resets the backoff and sleeps
// for the poll interval.
func (s *Scanner) Start(ctx context.Context) {
	checkpoint := s.Checkpoint()
	s.logger.WithFields(logrus.Fields{
		"chain_id":             checkpoint.ChainID,
		"address":              checkpoint.Address,
		"last_processed_block": checkpoint.LastProcessedBlock,
	}).Info("starting block scanner")
	for ctx.Err() == nil {
		if err := s.RunCycle(ctx); err != nil {
			if utils.ContextSleep(ctx, s.backoff.Next()) == nil {
				return
			}
			continue
		}
		s.backoff.Reset()
		if utils.ContextSleep(ctx, s.cfg.PollInterval()) == nil {
			return
		}
	}
}

// RunCycle executes exactly one scan cycle. The checkpoint advances only if
// every event of the scanned range reached a terminal non-failed status.
func (s *Scanner) RunCycle(ctx context.Context) error {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("stage", StageFetchHead).Warn("can't fetch latest block number")
		return err
	}
	if head < s.cfg.Source.BlockConfirmations {
		head = 0
	} else {
		head -= s.cfg.Source.BlockConfirmations
	}
	s.recordHeadBlockNumber(head)

	blocksRange, ok := ComputeRange(s.LastProcessedBlock(), head, s.cfg.Source.MaxBlockRangeSize)
	if !ok {
		s.logger.WithField("head_block", head).Debug("no new blocks to process")
		return nil
	}

	logs, scannedRange, err := s.scanEvents(ctx, blocksRange)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"stage":      StageScanEvents,
			"from_block": blocksRange.From,
			"to_block":   blocksRange.To,
		}).Warn("failed to scan events in range")
		return err
	}

	if err = s.dispatch(ctx, logs); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"stage":      StageDispatchBatch,
			"from_block": scannedRange.From,
			"to_block":   scannedRange.To,
		}).Warn("batch failed, range will be re-scanned")
		return err
	}

	if err = s.advanceCheckpoint(ctx, scannedRange.To); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"stage":        StageAdvanceCheckpoint,
			"block_number": scannedRange.To,
		}).Warn("can't persist checkpoint")
		return err
	}
	return nil
}

// scanEvents fetches matching logs for the range. When the provider rejects
// the range as too large, the span is shrunk and the fetch retried a bounded
// number of times. The actually scanned range is returned alongside the logs.
func (s *Scanner) scanEvents(ctx context.Context, blocksRange BlocksRange) ([]types.Log, BlocksRange, error) {
	for attempt := uint(0); ; attempt++ {
		logs, err := s.client.FilterLogs(ctx, s.filterQuery(blocksRange))
		if err == nil {
			s.logger.WithFields(logrus.Fields{
				"count":      len(logs),
				"from_block": blocksRange.From,
				"to_block":   blocksRange.To,
			}).Info("fetched logs in range")
			return logs, blocksRange, nil
		}
		if !ethclient.IsRangeTooLarge(err) || attempt >= s.cfg.Source.RangeRetries {
			return nil, blocksRange, err
		}
		shrunk := blocksRange.Shrink(s.cfg.Source.RangeShrinkFactor)
		s.logger.WithFields(logrus.Fields{
			"stage":      StageScanEvents,
			"from_block": blocksRange.From,
			"to_block":   blocksRange.To,
			"new_to":     shrunk.To,
		}).Warn("provider rejected block range, shrinking and retrying")
		blocksRange = shrunk
	}
}

func (s *Scanner) filterQuery(blocksRange BlocksRange) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: big.NewInt(int64(blocksRange.From)),
		ToBlock:   big.NewInt(int64(blocksRange.To)),
		Addresses: []common.Address{s.bridge.Address()},
		Topics:    [][]common.Hash{{s.eventTopic}},
	}
}

// dispatch decodes and relays the batch in ascending (block, log index)
// order, one event at a time. Malformed events are skipped; any submission
// failure fails the whole batch so the checkpoint stays put.
func (s *Scanner) dispatch(ctx context.Context, logs []types.Log) error {
	events := make([]*entity.RawEvent, 0, len(logs))
	for _, log := range logs {
		event, err := DecodeTokensLocked(s.bridge, log)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"stage":        StageDispatchBatch,
				"block_number": log.BlockNumber,
				"tx_hash":      log.TxHash,
				"log_index":    log.Index,
			}).Warn("skipping malformed event log")
			s.relay.MarkMalformed(entity.EventKey{TransactionHash: log.TxHash, LogIndex: uint(log.Index)})
			continue
		}
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		return a.BlockNumber < b.BlockNumber || (a.BlockNumber == b.BlockNumber && a.LogIndex < b.LogIndex)
	})
	for _, event := range events {
		if _, err := s.relay.Process(ctx, event); err != nil {
			if errors.Is(err, ErrMalformedEvent) {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"stage":     StageDispatchBatch,
					"event_key": event.Key(),
				}).Warn("skipping malformed event")
				continue
			}
			return err
		}
	}
	return nil
}

func (s *Scanner) advanceCheckpoint(ctx context.Context, blockNumber uint) error {
	if blockNumber < s.LastProcessedBlock() {
		return nil
	}
	// persist a copy first, publish only after the write succeeded, so the
	// in-memory cursor never runs ahead of the durable one and a failed
	// persist simply re-scans and deduplicates the range on the next cycle
	checkpoint := s.Checkpoint()
	checkpoint.LastProcessedBlock = blockNumber
	if err := s.checkpoints.Ensure(ctx, &checkpoint); err != nil {
		return err
	}
	s.mu.Lock()
	*s.checkpoint = checkpoint
	s.mu.Unlock()
	s.processedBlockMetric.Set(float64(blockNumber))
	s.recordIsSynced()
	return nil
}

func (s *Scanner) recordHeadBlockNumber(blockNumber uint) {
	s.mu.Lock()
	if blockNumber < s.headBlock {
		s.mu.Unlock()
		return
	}
	s.headBlock = blockNumber
	s.mu.Unlock()
	s.headBlockMetric.Set(float64(blockNumber))
	s.recordIsSynced()
}

func (s *Scanner) recordIsSynced() {
	s.mu.Lock()
	s.isSynced = s.checkpoint.LastProcessedBlock+defaultSyncedThreshold > s.headBlock
	synced := s.isSynced
	s.mu.Unlock()
	if synced {
		s.syncedMetric.Set(1)
	} else {
		s.syncedMetric.Set(0)
	}
}
