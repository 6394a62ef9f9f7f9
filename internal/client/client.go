package client

import (
	"context"
	"io"
	"net/http"
)

// Client talks to the external billing/subscription service. The protocol is
// treated as opaque: ask for a charge, get told yes/no/pending later via the
// webhook.
type Client struct {
	*http.Client
	BillingBaseURL string
	BillingSecret  string
	Logger         logger
}

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Error(v ...any)
	Errorf(format string, v ...any)
}

func (c Client) newRequest(ctx context.Context, method string, url string, body io.Reader) (*http.Request, error) {
	r, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Billing-Secret", c.BillingSecret)
	return r, nil
}
