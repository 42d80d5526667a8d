package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"positionguard/internal/config"
	"positionguard/internal/errors"
	"positionguard/internal/logging"
	"positionguard/internal/models"
	"positionguard/pkg/utils"
)

// Bitget mix v1 endpoints.
const (
	positionPath   = "/api/mix/v1/position/allPosition"
	planListPath   = "/api/mix/v1/plan/currentPlan"
	cancelPlanPath = "/api/mix/v1/plan/cancelPlan"
	placePlanPath  = "/api/mix/v1/plan/placePlan"

	codeOK = "00000"
)

// BitgetBroker implements the Broker interface against the Bitget mix v1 API.
type BitgetBroker struct {
	httpClient *http.Client
	signer     *Signer
	clock      *TimeSync
	logger     zerolog.Logger

	baseURL        string
	productType    string
	marginCoin     string
	pricePrecision int
	sizePrecision  int
}

// NewBitgetBroker creates a Bitget broker from configuration. The TimeSync
// instance is shared so the caller can sync it once at pass start.
func NewBitgetBroker(cfg *config.Config, clock *TimeSync, logger zerolog.Logger) *BitgetBroker {
	creds := cfg.Credentials.Bitget
	return &BitgetBroker{
		httpClient:     &http.Client{Timeout: cfg.Exchange.RequestTimeout},
		signer:         NewSigner(creds.APIKey, creds.APISecret, creds.Passphrase),
		clock:          clock,
		logger:         logger,
		baseURL:        cfg.Exchange.BaseURL,
		productType:    cfg.Exchange.ProductType,
		marginCoin:     cfg.Exchange.MarginCoin,
		pricePrecision: cfg.Guard.PricePrecision,
		sizePrecision:  cfg.Guard.SizePrecision,
	}
}

// envelope is the common Bitget response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// doRequest issues one signed request and unwraps the Bitget envelope.
// Tolerated venue rejections (order already gone) surface as a *VenueError
// whose Tolerated method returns true; callers decide how benign that is.
func (b *BitgetBroker) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	signedPath := path
	requestURL := b.baseURL + path
	if len(query) > 0 {
		qs := query.Encode()
		signedPath += "?" + qs
		requestURL += "?" + qs
	}

	timestamp := b.clock.Timestamp()
	signature := b.signer.Sign(timestamp, method, signedPath, string(bodyBytes))

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ACCESS-KEY", b.signer.APIKey())
	req.Header.Set("ACCESS-SIGN", signature)
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-PASSPHRASE", b.signer.Passphrase())
	req.Header.Set("locale", "en-US")

	start := time.Now()
	resp, err := b.httpClient.Do(req)
	logging.LogAPICall(b.logger, method, path, time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConnectionFailed, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("decoding response from %s (status %d): %w", path, resp.StatusCode, err)
	}

	// Bitget reports application errors both inside HTTP 200 envelopes and
	// as HTTP 400 with the same code fields.
	if env.Code != codeOK {
		venueErr := errors.NewVenueError(env.Code, env.Msg, path)
		if venueErr.Tolerated() {
			b.logger.Warn().Str("code", env.Code).Str("path", path).Msg("Order already gone, tolerated")
			return nil, venueErr
		}
		return nil, venueErr
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	return env.Data, nil
}

// FetchPositions returns the raw open-position snapshot.
func (b *BitgetBroker) FetchPositions(ctx context.Context) ([]models.PositionRecord, error) {
	query := url.Values{"productType": {b.productType}}
	data, err := b.doRequest(ctx, http.MethodGet, positionPath, query, nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetching positions")
	}

	var records []models.PositionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding position list: %w", err)
	}
	return records, nil
}

// FetchPlanOrders returns the raw pending conditional-order snapshot. The
// venue wraps the list in different envelopes depending on API vintage, so
// both a bare array and {planList}/{orderList} objects are accepted.
func (b *BitgetBroker) FetchPlanOrders(ctx context.Context) ([]models.PlanOrderRecord, error) {
	query := url.Values{"productType": {b.productType}}
	data, err := b.doRequest(ctx, http.MethodGet, planListPath, query, nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetching plan orders")
	}

	var records []models.PlanOrderRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		PlanList  []models.PlanOrderRecord `json:"planList"`
		OrderList []models.PlanOrderRecord `json:"orderList"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding plan order list: %w", err)
	}
	if wrapped.PlanList != nil {
		return wrapped.PlanList, nil
	}
	return wrapped.OrderList, nil
}

// CancelPlanOrder cancels one conditional order.
func (b *BitgetBroker) CancelPlanOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	payload := map[string]string{
		"symbol":      symbol,
		"productType": b.productType,
		"marginCoin":  b.marginCoin,
		"orderId":     orderID,
		"planType":    "normal_plan",
	}

	_, err := b.doRequest(ctx, http.MethodPost, cancelPlanPath, nil, payload)
	if err != nil {
		if errors.IsTolerated(err) {
			return true, nil
		}
		return false, errors.NewActionError("cancel", symbol, orderID, err)
	}
	return false, nil
}

// PlacePlanOrder places a new conditional order and returns its id. Sizes and
// prices are rounded to the configured exchange precision.
func (b *BitgetBroker) PlacePlanOrder(ctx context.Context, req PlacePlanRequest) (string, error) {
	trigger := utils.FormatDecimal(req.TriggerPrice, b.pricePrecision)
	style := req.OrderStyle
	if style == "" {
		style = "limit"
	}

	payload := map[string]string{
		"symbol":       req.Symbol,
		"size":         utils.FormatDecimal(req.Size, b.sizePrecision),
		"side":         string(req.Side),
		"orderType":    style,
		"productType":  b.productType,
		"marginCoin":   b.marginCoin,
		"triggerPrice": trigger,
		"triggerType":  "mark_price",
		"executePrice": trigger,
	}

	data, err := b.doRequest(ctx, http.MethodPost, placePlanPath, nil, payload)
	if err != nil {
		return "", errors.NewActionError("place", req.Symbol, "", err)
	}

	var placed struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(data, &placed); err != nil {
		return "", fmt.Errorf("decoding place response: %w", err)
	}
	return placed.OrderID, nil
}
