package gasoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/params"

	"github.com/omni/bridge-relay/config"
	"github.com/omni/bridge-relay/ethclient"
	"github.com/omni/bridge-relay/logging"
)

const defaultRequestTimeout = 10 * time.Second

// Client fetches the destination chain gas price from an external oracle API.
// Price unavailability is never fatal, the fallback order is oracle response,
// node suggested price, static configured value.
type Client struct {
	logger logging.Logger
	cfg    *config.GasOracleConfig
	node   ethclient.Client
	client *http.Client
}

type oracleResponse struct {
	Fast float64 `json:"fast"`
}

func NewClient(logger logging.Logger, cfg *config.GasOracleConfig, node ethclient.Client) *Client {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		logger: logger,
		cfg:    cfg,
		node:   node,
		client: &http.Client{Timeout: timeout},
	}
}

// GasPrice returns the current gas price estimate in wei. It never fails.
func (c *Client) GasPrice(ctx context.Context) *big.Int {
	price, err := c.fetchOraclePrice(ctx)
	if err == nil {
		return price
	}
	c.logger.WithError(err).Warn("can't fetch gas price from oracle, falling back")
	if c.node != nil {
		price, err2 := c.node.SuggestGasPrice(ctx)
		if err2 == nil {
			return price
		}
		c.logger.WithError(err2).Warn("can't fetch suggested gas price from node, using static fallback")
	}
	return c.FallbackGasPrice()
}

func (c *Client) FallbackGasPrice() *big.Int {
	return gweiToWei(float64(c.cfg.FallbackGasPriceGwei))
}

func (c *Client) fetchOraclePrice(ctx context.Context) (*big.Int, error) {
	if c.cfg.URL == "" {
		return nil, fmt.Errorf("gas oracle url is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("can't create gas oracle request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't request gas oracle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gas oracle returned status %d", resp.StatusCode)
	}
	res := new(oracleResponse)
	if err = json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, fmt.Errorf("can't decode gas oracle response: %w", err)
	}
	if res.Fast <= 0 {
		return nil, fmt.Errorf("gas oracle returned non-positive price %v", res.Fast)
	}
	return gweiToWei(res.Fast), nil
}

func gweiToWei(gwei float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(params.GWei)).Int(nil)
	return wei
}
