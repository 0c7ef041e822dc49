package relay

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/omni/bridge-relay/entity"
	"github.com/omni/bridge-relay/logging"
)

const defaultSeenKeysCap = 4096

// GasOracle provides the destination gas price. Implementations must degrade
// to a fallback value instead of failing.
type GasOracle interface {
	GasPrice(ctx context.Context) *big.Int
}

// ChainWriter submits one unlock action to the destination chain.
type ChainWriter interface {
	UnlockTokens(ctx context.Context, recipient common.Address, amount *big.Int, sourceNonce uint64) (common.Hash, error)
}

// EventRelay converts raw source-chain events into destination unlock actions
// one at a time, deduplicating replays within the process lifetime.
type EventRelay struct {
	logger          logging.Logger
	writer          ChainWriter
	oracle          GasOracle
	seen            *seenKeys
	relayedMetric   prometheus.Counter
	dedupMetric     prometheus.Counter
	malformedMetric prometheus.Counter
	failedMetric    prometheus.Counter
}

func NewEventRelay(logger logging.Logger, relayID string, writer ChainWriter, oracle GasOracle) *EventRelay {
	return &EventRelay{
		logger:          logger,
		writer:          writer,
		oracle:          oracle,
		seen:            newSeenKeys(defaultSeenKeysCap),
		relayedMetric:   RelayedEvents.WithLabelValues(relayID),
		dedupMetric:     SkippedEvents.WithLabelValues(relayID, "duplicate"),
		malformedMetric: SkippedEvents.WithLabelValues(relayID, "malformed"),
		failedMetric:    FailedSubmissions.WithLabelValues(relayID),
	}
}

// MarkMalformed records the key of an event that can never be relayed, so
// re-scans of its range do not log it over and over again.
func (r *EventRelay) MarkMalformed(key entity.EventKey) {
	if !r.seen.SeenOrAdd(key) {
		r.malformedMetric.Inc()
	}
}

// Process validates, deduplicates and submits one event. A nil action with a
// nil error means the event was already relayed and was skipped. A returned
// error fails the containing batch unless it is ErrMalformedEvent.
func (r *EventRelay) Process(ctx context.Context, event *entity.RawEvent) (*entity.RelayAction, error) {
	if err := validateEvent(event); err != nil {
		r.MarkMalformed(event.Key())
		return nil, err
	}
	if r.seen.SeenOrAdd(event.Key()) {
		r.logger.WithFields(logrus.Fields{
			"event_key": event.Key(),
			"nonce":     event.Nonce,
		}).Info("event was already relayed, skipping")
		r.dedupMetric.Inc()
		return nil, nil
	}
	action := &entity.RelayAction{
		Recipient: event.Recipient,
		Amount:    event.Amount,
		Nonce:     event.Nonce,
		GasPrice:  r.oracle.GasPrice(ctx),
		Status:    entity.ActionStatusPending,
	}
	ref, err := r.writer.UnlockTokens(ctx, action.Recipient, action.Amount, action.Nonce)
	if err != nil {
		action.Status = entity.ActionStatusFailed
		r.failedMetric.Inc()
		// forget the key so that the re-scanned range retries this event
		r.seen.Forget(event.Key())
		return action, fmt.Errorf("can't submit unlock action for event %s: %w", event.Key(), err)
	}
	action.Status = entity.ActionStatusSubmitted
	action.ReferenceID = ref
	r.relayedMetric.Inc()
	r.logger.WithFields(logrus.Fields{
		"event_key":    event.Key(),
		"block_number": event.BlockNumber,
		"nonce":        event.Nonce,
		"reference_id": ref,
	}).Info("relayed event to destination chain")
	return action, nil
}

func validateEvent(event *entity.RawEvent) error {
	if event.Recipient == (common.Address{}) {
		return fmt.Errorf("%w: empty recipient", ErrMalformedEvent)
	}
	if event.Amount == nil || event.Amount.Sign() < 0 {
		return fmt.Errorf("%w: missing or negative amount", ErrMalformedEvent)
	}
	return nil
}
