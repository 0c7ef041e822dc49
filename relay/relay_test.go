package relay_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/omni/bridge-relay/entity"
	"github.com/omni/bridge-relay/relay"
)

type submitCall struct {
	Recipient common.Address
	Amount    *big.Int
	Nonce     uint64
}

type fakeWriter struct {
	calls []submitCall
	err   error
}

func (w *fakeWriter) UnlockTokens(_ context.Context, recipient common.Address, amount *big.Int, sourceNonce uint64) (common.Hash, error) {
	w.calls = append(w.calls, submitCall{Recipient: recipient, Amount: amount, Nonce: sourceNonce})
	if w.err != nil {
		return common.Hash{}, w.err
	}
	return crypto.Keccak256Hash(amount.Bytes(), new(big.Int).SetUint64(sourceNonce).Bytes()), nil
}

type fakeOracle struct {
	price *big.Int
}

func (o *fakeOracle) GasPrice(_ context.Context) *big.Int {
	return o.price
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testEvent() *entity.RawEvent {
	return &entity.RawEvent{
		BlockNumber:     1000055,
		TransactionHash: crypto.Keccak256Hash([]byte("0xabc")),
		LogIndex:        2,
		Sender:          aliceAddr,
		Recipient:       aliceAddr,
		Amount:          big.NewInt(100000000),
		Nonce:           42,
	}
}

func TestEventRelayProcess(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	oracle := &fakeOracle{price: big.NewInt(30000000000)}
	eventRelay := relay.NewEventRelay(testLogger(), "test", writer, oracle)

	action, err := eventRelay.Process(context.Background(), testEvent())
	require.NoError(t, err)
	require.Equal(t, entity.ActionStatusSubmitted, action.Status)
	require.Equal(t, uint64(42), action.Nonce)
	require.Equal(t, big.NewInt(30000000000), action.GasPrice)
	require.NotEqual(t, common.Hash{}, action.ReferenceID)
	require.Equal(t, []submitCall{{Recipient: aliceAddr, Amount: big.NewInt(100000000), Nonce: 42}}, writer.calls)
}

func TestEventRelayDeduplicatesReplays(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	eventRelay := relay.NewEventRelay(testLogger(), "test", writer, &fakeOracle{price: big.NewInt(1)})

	action, err := eventRelay.Process(context.Background(), testEvent())
	require.NoError(t, err)
	require.NotNil(t, action)

	// same identity key submitted again, suppressed without a writer call
	action, err = eventRelay.Process(context.Background(), testEvent())
	require.NoError(t, err)
	require.Nil(t, action)
	require.Len(t, writer.calls, 1)
}

func TestEventRelaySubmissionFailure(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{err: errors.New("destination rpc is down")}
	eventRelay := relay.NewEventRelay(testLogger(), "test", writer, &fakeOracle{price: big.NewInt(1)})

	action, err := eventRelay.Process(context.Background(), testEvent())
	require.Error(t, err)
	require.NotErrorIs(t, err, relay.ErrMalformedEvent)
	require.Equal(t, entity.ActionStatusFailed, action.Status)

	// a failed submission must stay retryable on the next re-scan
	writer.err = nil
	action, err = eventRelay.Process(context.Background(), testEvent())
	require.NoError(t, err)
	require.Equal(t, entity.ActionStatusSubmitted, action.Status)
	require.Len(t, writer.calls, 2)
}

func TestEventRelayMalformedEvent(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	eventRelay := relay.NewEventRelay(testLogger(), "test", writer, &fakeOracle{price: big.NewInt(1)})

	event := testEvent()
	event.Recipient = common.Address{}
	_, err := eventRelay.Process(context.Background(), event)
	require.ErrorIs(t, err, relay.ErrMalformedEvent)
	require.Empty(t, writer.calls)
}
