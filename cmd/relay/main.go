package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omni/bridge-relay/config"
	"github.com/omni/bridge-relay/contract"
	"github.com/omni/bridge-relay/db"
	"github.com/omni/bridge-relay/ethclient"
	"github.com/omni/bridge-relay/gasoracle"
	"github.com/omni/bridge-relay/logging"
	"github.com/omni/bridge-relay/presenter"
	"github.com/omni/bridge-relay/relay"
	"github.com/omni/bridge-relay/repository"
)

func main() {
	logger := logging.New()

	cfgPath := "config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.ReadConfigFromFile(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	var repo *repository.Repo
	if cfg.DBConfig != nil {
		dbConn, err2 := db.ConnectToDBAndMigrate(cfg.DBConfig)
		if err2 != nil {
			logger.WithError(err2).Fatal("can't connect to database and apply migrations")
		}
		defer dbConn.Close()
		repo = repository.NewPostgresRepo(dbConn)
	} else {
		repo, err = repository.NewFilesystemRepo(cfg.StateDir)
		if err != nil {
			logger.WithError(err).Fatal("can't initialize filesystem checkpoint store")
		}
	}

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		err2 := http.ListenAndServe(":2112", nil)
		if err2 != nil {
			logger.WithError(err2).Fatal("can't start listener for prometheus metrics")
		}
	}()

	for _, relayID := range cfg.DisabledRelays {
		delete(cfg.Relays, relayID)
	}
	if cfg.EnabledRelays != nil {
		newRelayCfg := make(map[string]*config.RelayConfig, len(cfg.EnabledRelays))
		for _, relayID := range cfg.EnabledRelays {
			if relayCfg, ok := cfg.Relays[relayID]; ok {
				newRelayCfg[relayID] = relayCfg
			}
		}
		cfg.Relays = newRelayCfg
	}

	ctx, cancel := context.WithCancel(context.Background())
	scanners := make(map[string]*relay.Scanner, len(cfg.Relays))
	for _, relayCfg := range cfg.Relays {
		relayLogger := logger.WithField("relay_id", relayCfg.ID)
		sourceChain := relayCfg.Source.Chain
		sourceClient, err2 := ethclient.NewClient(sourceChain.RPC.Host, sourceChain.RPC.Timeout.Duration, sourceChain.ChainID)
		if err2 != nil {
			relayLogger.WithError(err2).Fatal("can't dial source rpc client")
		}
		destChain := relayCfg.Destination.Chain
		destClient, err2 := ethclient.NewClient(destChain.RPC.Host, destChain.RPC.Timeout.Duration, destChain.ChainID)
		if err2 != nil {
			relayLogger.WithError(err2).Fatal("can't dial destination rpc client")
		}
		writer := contract.NewBridgeContract(destClient, relayCfg.Destination.ContractAddress())
		oracle := gasoracle.NewClient(relayLogger.WithField("service", "gas_oracle"), relayCfg.GasOracle, destClient)
		eventRelay := relay.NewEventRelay(relayLogger, relayCfg.ID, writer, oracle)
		scanner, err2 := relay.NewScanner(ctx, relayLogger, repo, relayCfg, sourceClient, eventRelay)
		if err2 != nil {
			relayLogger.WithError(err2).Fatal("can't initialize block scanner")
		}
		scanners[relayCfg.ID] = scanner
	}

	if cfg.Presenter != nil {
		pr := presenter.NewPresenter(logger.WithField("service", "presenter"), scanners)
		go func() {
			err2 := pr.Serve(cfg.Presenter.Host)
			if err2 != nil {
				logger.WithError(err2).Fatal("can't serve presenter")
			}
		}()
	}

	for _, scanner := range scanners {
		go scanner.Start(ctx)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	for range c {
		cancel()
		logger.Warn("caught CTRL-C, gracefully terminating")
		return
	}
}
