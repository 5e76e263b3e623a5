// FILE: broker_oanda.go
// Package main – OANDA v20 REST broker.
//
// Implements Broker against the OANDA v20 REST API:
//   • GetPrice:        GET  /accounts/{id}/pricing?instruments=EUR_USD -> bids[0].price
//   • PlaceLimitOrder: POST /accounts/{id}/orders  {"order":{"type":"LIMIT",...}}
//
// Auth is a static bearer token (OANDA_API_KEY). The practice endpoint is the
// default base URL; set OANDA_API_URL to https://api-fxtrade.oanda.com/v3 for
// a live account.
//
// Only pricing GETs are retried (429/5xx/transport). Order POSTs are never
// retried: a failed dispatch is reported once and abandoned for the cycle.
package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const defaultOANDAURL = "https://api-fxpractice.oanda.com/v3"

// OANDAConfig carries the credentials and transport knobs.
type OANDAConfig struct {
	APIKey    string        `yaml:"api_key"`
	AccountID string        `yaml:"account_id"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
}

// OANDABroker talks to the OANDA v20 REST API.
type OANDABroker struct {
	accountID string
	rc        *resty.Client
}

// NewOANDABroker returns a broker bound to one account.
func NewOANDABroker(cfg OANDAConfig) (*OANDABroker, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, newConfigError("oanda.api_key", "must be set")
	}
	if strings.TrimSpace(cfg.AccountID) == "" {
		return nil, newConfigError("oanda.account_id", "must be set")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultOANDAURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "oandagrid/1").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
			if r != nil && r.StatusCode() == http.StatusTooManyRequests {
				if s := r.Header().Get("Retry-After"); s != "" {
					if sec, err := strconv.Atoi(s); err == nil {
						return time.Duration(sec) * time.Second, nil
					}
				}
			}
			return 0, nil
		})

	return &OANDABroker{accountID: cfg.AccountID, rc: rc}, nil
}

func (b *OANDABroker) Name() string { return "oanda" }

// --- Price ---

type oandaPriceBucket struct {
	Price string `json:"price"`
}

type oandaPrice struct {
	Instrument string             `json:"instrument"`
	Time       string             `json:"time"`
	Bids       []oandaPriceBucket `json:"bids"`
	Asks       []oandaPriceBucket `json:"asks"`
}

type oandaPricingResp struct {
	Prices []oandaPrice `json:"prices"`
}

type oandaErrorResp struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Reject       *struct {
		ID           string `json:"id"`
		RejectReason string `json:"rejectReason"`
	} `json:"orderRejectTransaction"`
}

func (e *oandaErrorResp) reason() string {
	switch {
	case e == nil:
		return ""
	case e.ErrorMessage != "":
		return e.ErrorMessage
	case e.Reject != nil && e.Reject.RejectReason != "":
		return e.Reject.RejectReason
	default:
		return e.ErrorCode
	}
}

// GetPrice returns the first bid for instrument. Any failure, including an
// instrument missing from the response, is reported as a *FeedError.
func (b *OANDABroker) GetPrice(ctx context.Context, instrument string) FeedResult {
	var out oandaPricingResp
	var apiErr oandaErrorResp
	res, err := b.rc.R().
		SetContext(ctx).
		SetPathParam("accountID", b.accountID).
		SetQueryParam("instruments", instrument).
		SetResult(&out).
		SetError(&apiErr).
		Get("/accounts/{accountID}/pricing")
	if err != nil {
		return feedFailure(instrument, "transport", errors.Wrap(err, "pricing request"))
	}
	if res.IsError() {
		reason := apiErr.reason()
		if reason == "" {
			reason = strings.TrimSpace(string(res.Body()))
		}
		return feedFailure(instrument, fmt.Sprintf("http %d: %s", res.StatusCode(), reason), nil)
	}

	for _, p := range out.Prices {
		if p.Instrument != instrument {
			continue
		}
		if len(p.Bids) == 0 {
			return feedFailure(instrument, "no bids in response", nil)
		}
		px, err := decimal.NewFromString(strings.TrimSpace(p.Bids[0].Price))
		if err != nil {
			return feedFailure(instrument, "bad bid price", errors.WithStack(err))
		}
		ts, err := time.Parse(time.RFC3339Nano, p.Time)
		if err != nil {
			ts = time.Now().UTC()
		}
		return FeedResult{Tick: MarketTick{Instrument: instrument, Price: px, Time: ts}}
	}
	return feedFailure(instrument, "instrument not in response", nil)
}

// --- Orders ---

type oandaPriceDetails struct {
	Price string `json:"price"`
}

type oandaClientExtensions struct {
	ID  string `json:"id"`
	Tag string `json:"tag,omitempty"`
}

type oandaLimitOrder struct {
	Type             string                 `json:"type"`
	Instrument       string                 `json:"instrument"`
	Units            string                 `json:"units"`
	Price            string                 `json:"price"`
	TimeInForce      string                 `json:"timeInForce"`
	PositionFill     string                 `json:"positionFill"`
	StopLossOnFill   *oandaPriceDetails     `json:"stopLossOnFill,omitempty"`
	TakeProfitOnFill *oandaPriceDetails     `json:"takeProfitOnFill,omitempty"`
	ClientExtensions *oandaClientExtensions `json:"clientExtensions,omitempty"`
}

type oandaOrderReq struct {
	Order oandaLimitOrder `json:"order"`
}

type oandaOrderResp struct {
	OrderCreateTransaction *struct {
		ID string `json:"id"`
	} `json:"orderCreateTransaction"`
	LastTransactionID string `json:"lastTransactionID"`
}

// newLimitOrderRequest maps an intent onto the OANDA order body.
func newLimitOrderRequest(intent OrderIntent, clientID string) oandaOrderReq {
	o := oandaLimitOrder{
		Type:             "LIMIT",
		Instrument:       intent.Instrument,
		Units:            strconv.FormatInt(intent.Units, 10),
		Price:            intent.Price.String(),
		TimeInForce:      "GTC",
		PositionFill:     "DEFAULT",
		ClientExtensions: &oandaClientExtensions{ID: clientID, Tag: "grid"},
	}
	if intent.StopLoss != nil {
		o.StopLossOnFill = &oandaPriceDetails{Price: intent.StopLoss.String()}
	}
	if intent.TakeProfit != nil {
		o.TakeProfitOnFill = &oandaPriceDetails{Price: intent.TakeProfit.String()}
	}
	return oandaOrderReq{Order: o}
}

// PlaceLimitOrder submits one LIMIT order. Acceptance means OANDA created
// the order; fills are not tracked.
func (b *OANDABroker) PlaceLimitOrder(ctx context.Context, intent OrderIntent) PlacementResult {
	clientID := uuid.New().String()
	if intent.Units == 0 {
		return placementFailure(clientID, intent, 0, "units must be non-zero", nil)
	}

	var out oandaOrderResp
	var apiErr oandaErrorResp
	res, err := b.rc.R().
		SetContext(ctx).
		SetPathParam("accountID", b.accountID).
		SetHeader("Content-Type", "application/json").
		SetBody(newLimitOrderRequest(intent, clientID)).
		SetResult(&out).
		SetError(&apiErr).
		Post("/accounts/{accountID}/orders")
	if err != nil {
		return placementFailure(clientID, intent, 0, "transport", errors.Wrap(err, "order request"))
	}
	if res.IsError() {
		reason := apiErr.reason()
		if reason == "" {
			reason = strings.TrimSpace(string(res.Body()))
		}
		return placementFailure(clientID, intent, res.StatusCode(), reason, nil)
	}
	if out.OrderCreateTransaction == nil || out.OrderCreateTransaction.ID == "" {
		return placementFailure(clientID, intent, res.StatusCode(), "no orderCreateTransaction in response", nil)
	}
	return PlacementResult{ClientID: clientID, OrderID: out.OrderCreateTransaction.ID, Intent: intent}
}
