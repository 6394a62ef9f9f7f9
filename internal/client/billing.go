package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"promobar/internal/misc"
	"time"
)

var ErrBilling = errors.New("billing service error")
var ErrBillingChargeNotFound = errors.New("billing charge not found")

type BillingCharge struct {
	ChargeID        string     `json:"charge_id"`
	Status          string     `json:"status"`
	ConfirmationURL string     `json:"confirmation_url,omitempty"`
	PeriodEnd       *time.Time `json:"period_end,omitempty"`
}

type billingCreateRequest struct {
	Shop      string  `json:"shop"`
	PlanName  string  `json:"plan_name"`
	Price     float64 `json:"price"`
	ReturnURL string  `json:"return_url"`
}

// BillingCreateCharge asks the billing service for a new recurring charge.
// The returned confirmation URL is where the merchant approves the charge;
// final status arrives later on the webhook.
func (c Client) BillingCreateCharge(ctx context.Context, shop, planName string, price float64, returnURL string) (BillingCharge, error) {
	reqBody, err := json.Marshal(billingCreateRequest{
		Shop:      shop,
		PlanName:  planName,
		Price:     price,
		ReturnURL: returnURL,
	})
	if err != nil {
		return BillingCharge{}, fmt.Errorf("BillingCreateCharge: error marshalling request for shop: %s, err: %v", shop, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.BillingBaseURL+"/recurring_charges", bytes.NewReader(reqBody))
	if err != nil {
		return BillingCharge{}, fmt.Errorf("BillingCreateCharge: error creating HTTP request from body: %s, err: %v", reqBody, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.Logger.Infof("BillingCreateCharge: Creating recurring charge for shop: %s, plan: %s", shop, planName)
	return c.doChargeRequest(req)
}

// BillingGetCharge queries the current status of a recurring charge.
func (c Client) BillingGetCharge(ctx context.Context, shop, chargeID string) (BillingCharge, error) {
	chargeURL := fmt.Sprintf("%s/recurring_charges/%s?shop=%s", c.BillingBaseURL, url.PathEscape(chargeID), url.QueryEscape(shop))
	req, err := c.newRequest(ctx, http.MethodGet, chargeURL, nil)
	if err != nil {
		return BillingCharge{}, fmt.Errorf("BillingGetCharge: error creating HTTP request to URL: %s, err: %v", chargeURL, err)
	}
	return c.doChargeRequest(req)
}

// BillingCancelCharge cancels an active recurring charge.
func (c Client) BillingCancelCharge(ctx context.Context, shop, chargeID string) error {
	chargeURL := fmt.Sprintf("%s/recurring_charges/%s?shop=%s", c.BillingBaseURL, url.PathEscape(chargeID), url.QueryEscape(shop))
	req, err := c.newRequest(ctx, http.MethodDelete, chargeURL, nil)
	if err != nil {
		return fmt.Errorf("BillingCancelCharge: error creating HTTP request to URL: %s, err: %v", chargeURL, err)
	}
	c.Logger.Infof("BillingCancelCharge: Cancelling charge: %s for shop: %s", chargeID, shop)
	_, err = c.doChargeRequest(req)
	return err
}

func (c Client) doChargeRequest(req *http.Request) (BillingCharge, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return BillingCharge{}, fmt.Errorf("%w: error doing request to URL: %s, err: %v", ErrBilling, req.URL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.Logger.Error("doChargeRequest: error closing response body, err:", err)
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 100*1024))
	if err != nil {
		return BillingCharge{}, fmt.Errorf("%w: error reading response body, status: %s, body:\n%s,\nerr: %v",
			ErrBilling, resp.Status, misc.BytesLimit(body, 2000), err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return BillingCharge{}, fmt.Errorf("%w: status: %s, body:\n%s",
			ErrBillingChargeNotFound, resp.Status, misc.BytesLimit(body, 2000))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return BillingCharge{}, fmt.Errorf("%w: unexpected status: %s, body:\n%s",
			ErrBilling, resp.Status, misc.BytesLimit(body, 2000))
	}

	charge := BillingCharge{}
	if err = json.Unmarshal(body, &charge); err != nil {
		return BillingCharge{}, fmt.Errorf("%w: error unmarshalling response body, status: %s, body:\n%s,\nerr: %v",
			ErrBilling, resp.Status, misc.BytesLimit(body, 2000), err)
	}
	return charge, nil
}
