package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-service/config"
	"storefront-service/internal/pricing"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const (
	standardServiceType   = 2
	responseBodyReadLimit = 64 << 10
)

// ShippingRequest is the parcel to price
type ShippingRequest struct {
	ToDistrictID   int    `json:"to_district_id"`
	ToWardCode     string `json:"to_ward_code"`
	WeightGrams    int    `json:"weight"`
	InsuranceValue int64  `json:"insurance_value"`
}

type feeRequest struct {
	ServiceTypeID  int    `json:"service_type_id"`
	FromDistrictID int    `json:"from_district_id"`
	ToDistrictID   int    `json:"to_district_id"`
	ToWardCode     string `json:"to_ward_code"`
	Weight         int    `json:"weight"`
	InsuranceValue int64  `json:"insurance_value"`
}

type feeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Total      int64 `json:"total"`
		ServiceFee int64 `json:"service_fee"`
	} `json:"data"`
}

// ShippingClient quotes delivery fees from the carrier's HTTP API
type ShippingClient struct {
	httpClient     *http.Client
	url            string
	token          string
	shopID         string
	fromDistrictID int
	logger         *zap.Logger
}

// NewShippingClient builds a client from the shipping config
func NewShippingClient(cfg config.ShippingConfig) *ShippingClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShippingClient{
		httpClient:     &http.Client{Timeout: timeout},
		url:            strings.TrimSpace(cfg.APIURL),
		token:          cfg.Token,
		shopID:         cfg.ShopID,
		fromDistrictID: cfg.FromDistrictID,
		logger:         util.GetLogger(),
	}
}

// Quote asks the carrier for the fee of req. Any transport failure, non-2xx
// status or non-success code in the body is returned as an error.
func (c *ShippingClient) Quote(ctx context.Context, req ShippingRequest) (*pricing.ShippingQuote, error) {
	ctx, span := util.StartSpan(ctx, "ShippingClient.Quote")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ShippingQuoteLatency.Observe(time.Since(start).Seconds())
	}()

	quote, err := c.quote(ctx, req)
	if err != nil {
		util.ShippingQuoteFailedTotal.Inc()
		c.logger.Warn("Shipping quote failed",
			zap.Int("to_district_id", req.ToDistrictID),
			zap.String("to_ward_code", req.ToWardCode),
			zap.Error(err))
		return nil, util.RecordError(span, err)
	}
	return quote, nil
}

func (c *ShippingClient) quote(ctx context.Context, req ShippingRequest) (*pricing.ShippingQuote, error) {
	payload, err := json.Marshal(feeRequest{
		ServiceTypeID:  standardServiceType,
		FromDistrictID: c.fromDistrictID,
		ToDistrictID:   req.ToDistrictID,
		ToWardCode:     req.ToWardCode,
		Weight:         req.WeightGrams,
		InsuranceValue: req.InsuranceValue,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fee request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build fee request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Token", c.token)
	httpReq.Header.Set("ShopId", c.shopID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute fee request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, fmt.Errorf("read fee response: %w", err)
	}

	var decoded feeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode fee response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decoded.Code != http.StatusOK {
		msg := decoded.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("carrier rejected fee request (status %d): %s", resp.StatusCode, msg)
	}

	fee := decoded.Data.ServiceFee
	if fee == 0 {
		fee = decoded.Data.Total
	}
	return &pricing.ShippingQuote{ServiceFee: fee, ServiceID: standardServiceType}, nil
}
