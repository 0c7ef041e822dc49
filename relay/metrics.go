package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatestHeadBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "scanner",
		Name:      "latest_head_block",
		Help:      "Shows the latest confirmed head block of the source chain. Events up to this block are waiting to be scanned.",
	}, []string{"relay_id", "chain_id", "address"})
	LatestProcessedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "scanner",
		Name:      "latest_processed_block",
		Help:      "Shows the latest durably checkpointed block. Events up to this block are fully relayed.",
	}, []string{"relay_id", "chain_id", "address"})
	SyncedScanner = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "scanner",
		Name:      "synced",
		Help:      "Shows 1 if the scanner checkpoint is considered as synced up to the chain head.",
	}, []string{"relay_id", "chain_id", "address"})

	RelayedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "events",
		Name:      "relayed_total",
		Help:      "Number of events successfully relayed to the destination chain.",
	}, []string{"relay_id"})
	SkippedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "events",
		Name:      "skipped_total",
		Help:      "Number of events skipped without a destination submission.",
	}, []string{"relay_id", "reason"})
	FailedSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "events",
		Name:      "failed_submissions_total",
		Help:      "Number of destination submissions that ended in an error.",
	}, []string{"relay_id"})
)
