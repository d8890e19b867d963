// Package practicum talks to the Practicum homework status API: one GET per
// poll cycle, plus shape validation of the returned envelope.
package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Homework is a single submission entry inside the envelope.
// Fields are pointers so a missing key is distinguishable from an empty
// value; the mapper checks them lazily.
type Homework struct {
	Name   *string `json:"homework_name"`
	Status *string `json:"status"`
}

// Envelope is the validated top-level payload of one status API call.
type Envelope struct {
	Homeworks []Homework
	// CurrentDate is the server-side cursor for the next request;
	// nil when the server omitted it.
	CurrentDate *int64
}

// Client issues authenticated requests against the status endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

// Fetch performs one GET with from_date=since and returns the body verbatim
// as raw JSON. Validation is a separate step (Validate); retry is the
// caller's responsibility via the outer periodic cycle.
func (c *Client) Fetch(ctx context.Context, since int64) (json.RawMessage, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("bad endpoint %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Endpoint: c.endpoint, Since: since, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectivityError{Endpoint: c.endpoint, Since: since, Err: err}
	}
	return json.RawMessage(body), nil
}
