// Package carrier talks to the shipping rate provider's REST API. It covers
// the two calls fulfillment needs, creating a shipment to collect rate quotes
// and purchasing a label for a chosen rate.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

const defaultCallTimeout = 15 * time.Second
const defaultResponseBodyLimit int64 = 2 << 20 // 2 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP carrier client. Both calls can create chargeable
// resources upstream; dedupe happens before this layer is reached.
type Client struct {
	BaseURL              string
	APIToken             string
	HTTP                 HTTPDoer
	MaxResponseBodyBytes int64
}

func NewClient(cfg core.CarrierConfig) *Client {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		BaseURL:              strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		APIToken:             strings.TrimSpace(cfg.APIToken),
		HTTP:                 &http.Client{Timeout: timeout},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

type addressPayload struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type parcelPayload struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type shipmentPayload struct {
	AddressFrom addressPayload  `json:"address_from"`
	AddressTo   addressPayload  `json:"address_to"`
	Parcels     []parcelPayload `json:"parcels"`
	Async       bool            `json:"async"`
}

type rateResponse struct {
	ObjectID     string `json:"object_id"`
	Shipment     string `json:"shipment"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Provider     string `json:"provider"`
	Servicelevel struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	} `json:"servicelevel"`
	EstimatedDays int `json:"estimated_days"`
}

type shipmentResponse struct {
	ObjectID string         `json:"object_id"`
	Status   string         `json:"status"`
	Rates    []rateResponse `json:"rates"`
	Messages []apiMessage   `json:"messages"`
}

type transactionPayload struct {
	Rate          string `json:"rate"`
	LabelFileType string `json:"label_file_type"`
	Async         bool   `json:"async"`
}

type transactionResponse struct {
	ObjectID       string       `json:"object_id"`
	Rate           string       `json:"rate"`
	Status         string       `json:"status"`
	LabelURL       string       `json:"label_url"`
	TrackingNumber string       `json:"tracking_number"`
	Messages       []apiMessage `json:"messages"`
}

type apiMessage struct {
	Source string `json:"source"`
	Code   string `json:"code"`
	Text   string `json:"text"`
}

// CreateShipment registers the shipment upstream and returns the rate quotes
// the carrier network offered for it. The shipment is created synchronously
// so rates are present in the response.
func (c *Client) CreateShipment(ctx context.Context, req core.ShipmentRequest) ([]core.RateQuote, error) {
	if err := req.From.Validate(); err != nil {
		return nil, carrierWrapError(err, goerrors.CategoryBadInput, "carrier: origin address is invalid", http.StatusBadRequest, nil)
	}
	if err := req.To.Validate(); err != nil {
		return nil, carrierWrapError(err, goerrors.CategoryBadInput, "carrier: destination address is invalid", http.StatusBadRequest, nil)
	}
	if err := req.Parcel.Validate(); err != nil {
		return nil, carrierWrapError(err, goerrors.CategoryBadInput, "carrier: parcel is invalid", http.StatusBadRequest, nil)
	}

	payload := shipmentPayload{
		AddressFrom: toAddressPayload(req.From),
		AddressTo:   toAddressPayload(req.To),
		Parcels:     []parcelPayload{toParcelPayload(req.Parcel)},
		Async:       false,
	}
	shipment := shipmentResponse{}
	if err := c.post(ctx, "/shipments", payload, &shipment); err != nil {
		return nil, err
	}
	if len(shipment.Rates) == 0 {
		return nil, carrierError(
			"carrier: shipment returned no rates",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"shipment_id": shipment.ObjectID, "messages": joinMessages(shipment.Messages)},
		)
	}

	quotes := make([]core.RateQuote, 0, len(shipment.Rates))
	for _, rate := range shipment.Rates {
		shipmentID := rate.Shipment
		if shipmentID == "" {
			shipmentID = shipment.ObjectID
		}
		quotes = append(quotes, core.RateQuote{
			ID:            rate.ObjectID,
			ShipmentID:    shipmentID,
			Amount:        rate.Amount,
			Currency:      rate.Currency,
			Carrier:       rate.Provider,
			ServiceLevel:  rate.Servicelevel.Name,
			EstimatedDays: rate.EstimatedDays,
		})
	}
	return quotes, nil
}

// PurchaseLabel buys the label for a previously quoted rate. The transaction
// endpoint reports failures in-band with a SUCCESS/ERROR status, so an HTTP
// 201 alone is not enough to call the purchase done.
func (c *Client) PurchaseLabel(ctx context.Context, rateID string) (core.LabelTransaction, error) {
	rateID = strings.TrimSpace(rateID)
	if rateID == "" {
		return core.LabelTransaction{}, carrierError(
			"carrier: rate id is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}

	payload := transactionPayload{Rate: rateID, LabelFileType: "PDF", Async: false}
	transaction := transactionResponse{}
	if err := c.post(ctx, "/transactions", payload, &transaction); err != nil {
		return core.LabelTransaction{}, err
	}
	if !strings.EqualFold(transaction.Status, "SUCCESS") || transaction.LabelURL == "" {
		return core.LabelTransaction{}, carrierError(
			"carrier: label purchase did not succeed",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"rate_id":  rateID,
				"status":   transaction.Status,
				"messages": joinMessages(transaction.Messages),
			},
		)
	}

	return core.LabelTransaction{
		ID:             transaction.ObjectID,
		RateID:         rateID,
		Status:         strings.ToLower(transaction.Status),
		LabelURL:       transaction.LabelURL,
		TrackingNumber: transaction.TrackingNumber,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if c == nil || c.HTTP == nil {
		return carrierError(
			"carrier: client requires an http doer",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if c.APIToken == "" {
		return carrierError(
			"carrier: api token is required",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return carrierWrapError(err, goerrors.CategoryInternal, "carrier: encode request payload", http.StatusInternalServerError, map[string]any{"path": path})
	}
	endpoint := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return carrierWrapError(err, goerrors.CategoryInternal, "carrier: create http request", http.StatusInternalServerError, map[string]any{"path": path})
	}
	httpReq.Header.Set("Authorization", "ShippoToken "+c.APIToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpRes, err := c.HTTP.Do(httpReq)
	if err != nil {
		return carrierWrapError(err, goerrors.CategoryExternal, "carrier: execute http request", http.StatusBadGateway, map[string]any{"path": path})
	}
	defer httpRes.Body.Close()

	limit := c.MaxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	resBody, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return carrierWrapError(err, goerrors.CategoryExternal, "carrier: read response body", http.StatusBadGateway, map[string]any{"path": path, "status_code": httpRes.StatusCode})
	}
	if int64(len(resBody)) > limit {
		return carrierError(
			fmt.Sprintf("carrier: response body exceeds limit of %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"path": path, "status_code": httpRes.StatusCode},
		)
	}

	if httpRes.StatusCode == http.StatusTooManyRequests {
		return carrierError(
			"carrier: rate limited by provider",
			goerrors.CategoryRateLimit,
			http.StatusTooManyRequests,
			map[string]any{"path": path},
		)
	}
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return carrierError(
			fmt.Sprintf("carrier: provider returned status %d", httpRes.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"path": path, "status_code": httpRes.StatusCode, "body": truncateForLog(resBody)},
		)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resBody, out); err != nil {
		return carrierWrapError(err, goerrors.CategoryExternal, "carrier: decode response payload", http.StatusBadGateway, map[string]any{"path": path})
	}
	return nil
}

func toAddressPayload(address core.Address) addressPayload {
	return addressPayload{
		Name:    address.Name,
		Street1: address.Street1,
		Street2: address.Street2,
		City:    address.City,
		State:   address.State,
		Zip:     address.PostalCode,
		Country: address.Country,
		Phone:   address.Phone,
		Email:   address.Email,
	}
}

func toParcelPayload(parcel core.Parcel) parcelPayload {
	return parcelPayload{
		Length:       strconv.FormatFloat(parcel.Length, 'f', -1, 64),
		Width:        strconv.FormatFloat(parcel.Width, 'f', -1, 64),
		Height:       strconv.FormatFloat(parcel.Height, 'f', -1, 64),
		DistanceUnit: parcel.DistanceUnit,
		Weight:       strconv.FormatFloat(parcel.Weight, 'f', -1, 64),
		MassUnit:     parcel.MassUnit,
	}
}

func joinMessages(messages []apiMessage) string {
	if len(messages) == 0 {
		return ""
	}
	parts := make([]string, 0, len(messages))
	for _, message := range messages {
		if strings.TrimSpace(message.Text) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(message.Text))
	}
	return strings.Join(parts, "; ")
}

func truncateForLog(body []byte) string {
	const maxLen = 512
	text := strings.TrimSpace(string(body))
	if len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}

var _ core.CarrierClient = (*Client)(nil)
