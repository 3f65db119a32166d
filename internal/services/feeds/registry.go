package feeds

import (
	"context"
	"fmt"
	"strings"

	xhttp "MarketPulse/pkg/http"
)

// HTTPSymbolRegistry fetches the supported-symbol list from an external
// registry service.
type HTTPSymbolRegistry struct {
	url    string
	client *xhttp.Client
}

// NewHTTPSymbolRegistry creates a registry client for the given endpoint.
func NewHTTPSymbolRegistry(url string, client *xhttp.Client) *HTTPSymbolRegistry {
	if client == nil {
		client = xhttp.NewClient()
	}
	return &HTTPSymbolRegistry{url: strings.TrimRight(url, "/"), client: client}
}

type symbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// SupportedSymbols returns the registry's symbol list.
func (r *HTTPSymbolRegistry) SupportedSymbols(ctx context.Context) ([]string, error) {
	if r.url == "" {
		return nil, fmt.Errorf("registry url empty")
	}
	var resp symbolsResponse
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    r.url + "/symbols",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch symbols: %w", err)
	}
	return resp.Symbols, nil
}
