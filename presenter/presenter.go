package presenter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/omni/bridge-relay/logging"
	"github.com/omni/bridge-relay/relay"
)

// Presenter exposes the relay state over a small HTTP API.
type Presenter struct {
	logger   logging.Logger
	scanners map[string]*relay.Scanner
	root     chi.Router
}

func NewPresenter(logger logging.Logger, scanners map[string]*relay.Scanner) *Presenter {
	return &Presenter{
		logger:   logger,
		scanners: scanners,
		root:     chi.NewMux(),
	}
}

func (p *Presenter) Serve(addr string) error {
	p.logger.WithField("addr", addr).Info("starting presenter service")
	p.root.Use(middleware.Throttle(5))
	p.root.Use(middleware.RequestID)
	p.root.Use(p.requestLogger)
	p.root.Get("/status", p.Status)
	p.root.Get("/relay/{relayID:[0-9a-zA-Z_\\-]+}/checkpoint", p.RelayCheckpoint)
	return http.ListenAndServe(addr, p.root)
}

func (p *Presenter) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := p.logger.WithFields(logrus.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"http_method": r.Method,
			"http_path":   r.RequestURI,
		})
		ts := time.Now()
		next.ServeHTTP(w, r)
		logger.WithField("duration", time.Since(ts)).Info("http request completed")
	})
}

func (p *Presenter) writeJSON(w http.ResponseWriter, res interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		p.logger.WithError(err).Error("failed to marshal JSON result")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type RelayStatus struct {
	ChainID            string `json:"chain_id"`
	Address            string `json:"address"`
	LastProcessedBlock uint   `json:"last_processed_block"`
	Synced             bool   `json:"synced"`
}

func (p *Presenter) Status(w http.ResponseWriter, r *http.Request) {
	res := make(map[string]*RelayStatus, len(p.scanners))
	for id, scanner := range p.scanners {
		checkpoint := scanner.Checkpoint()
		res[id] = &RelayStatus{
			ChainID:            checkpoint.ChainID,
			Address:            checkpoint.Address.String(),
			LastProcessedBlock: checkpoint.LastProcessedBlock,
			Synced:             scanner.IsSynced(),
		}
	}
	p.writeJSON(w, res)
}

func (p *Presenter) RelayCheckpoint(w http.ResponseWriter, r *http.Request) {
	relayID := chi.URLParam(r, "relayID")
	scanner, ok := p.scanners[relayID]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	p.writeJSON(w, scanner.Checkpoint())
}
