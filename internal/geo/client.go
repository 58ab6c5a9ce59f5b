package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public ip-api endpoint.
const DefaultBaseURL = "http://ip-api.com"

const lookupFields = "country,regionName,city,lat,lon,timezone,mobile,proxy,query,reverse,status,message"

// Location is one geolocation answer. Status is "success" or "fail"; on
// failure Message carries the provider's reason.
type Location struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timezone   string  `json:"timezone"`
	Mobile     bool    `json:"mobile"`
	Proxy      bool    `json:"proxy"`
	Query      string  `json:"query"`
	Reverse    string  `json:"reverse"`
}

// Failed reports whether the provider rejected the lookup.
func (l *Location) Failed() bool { return l.Status == "fail" }

// Client looks up hosts against an ip-api-compatible service. Lookups are
// bounded by the HTTP client timeout; a slow or unreachable provider never
// stalls the caller beyond that.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client for baseURL (DefaultBaseURL when empty) with
// a 5-second timeout.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup fetches the location of one host or IP string.
func (c *Client) Lookup(ctx context.Context, host string) (*Location, error) {
	u := c.BaseURL + "/json/" + url.PathEscape(host) + "?fields=" + url.QueryEscape(lookupFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build geo request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup %s: %w", host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup %s: unexpected status %s", host, resp.Status)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, fmt.Errorf("decode geo response: %w", err)
	}
	return &loc, nil
}
