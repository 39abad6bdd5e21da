package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/vigilpt/vigil/internal/cache"
	"github.com/vigilpt/vigil/internal/model"
)

const (
	defaultPortalBaseURL = "https://www.base.gov.pt/api/v1"
	portalMaxRetries     = 3
	portalBackoffBase    = 500 * time.Millisecond
)

// Query narrows a portal search
type Query struct {
	District string
	Year     int
	MaxPages int // 0 means fetch until the portal runs out
}

// PortalClient pages through the contracts search API. It rate-limits
// itself, honors robots.txt, retries transient failures with backoff
// and caches raw responses.
type PortalClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	robots     *robotsGate
	responses  cache.Cache
	maxBytes   int64
	userAgent  string
	sleep      func(context.Context, time.Duration) error
}

// PortalOption configures a PortalClient
type PortalOption func(*PortalClient)

// WithBaseURL overrides the portal endpoint; used by tests and mirrors
func WithBaseURL(u string) PortalOption {
	return func(c *PortalClient) { c.baseURL = u }
}

// WithAPIKey enables authenticated access to the official API
func WithAPIKey(key string) PortalOption {
	return func(c *PortalClient) { c.apiKey = key }
}

// WithResponseCache attaches a response cache
func WithResponseCache(store cache.Cache) PortalOption {
	return func(c *PortalClient) { c.responses = store }
}

// NewPortalClient creates a client from HTTP configuration
func NewPortalClient(cfg model.HTTPConfig, opts ...PortalOption) *PortalClient {
	transport := &http.Transport{
		Proxy: proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	c := &PortalClient{
		baseURL:    defaultPortalBaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		robots:     newRobotsGate(httpClient, cfg.UserAgent),
		maxBytes:   cfg.MaxBodyBytes,
		userAgent:  cfg.UserAgent,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// proxyFunc builds the transport proxy selector. Without explicit
// proxies it falls back to the environment.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// portalRecord mirrors the search API's result schema
type portalRecord struct {
	ID            string `json:"idContrato"`
	Authority     string `json:"nomeEntidadeAdjudicante"`
	AuthorityNIF  string `json:"nifEntidadeAdjudicante"`
	Contractor    string `json:"nomeEntidadeAdjudicataria"`
	ContractorNIF string `json:"nifEntidadeAdjudicataria"`
	Value         string `json:"precoContratual"`
	Published     string `json:"dataPublicacao"`
	Procedure     string `json:"tipoProcedimento"`
	ContractType  string `json:"tipoContrato"`
	Description   string `json:"objectoContrato"`
	District      string `json:"distrito"`
	County        string `json:"concelho"`
	CPV           string `json:"cpv"`
	TermDays      int    `json:"prazoExecucao"`
}

func (r portalRecord) toContract() model.Contract {
	c := model.Contract{
		ID:                r.ID,
		Authority:         model.Party{Name: r.Authority, TaxID: r.AuthorityNIF},
		Contractor:        model.Party{Name: r.Contractor, TaxID: r.ContractorNIF},
		Value:             parseMoney(r.Value),
		Procedure:         model.ParseProcedureType(r.Procedure),
		ContractType:      r.ContractType,
		Description:       r.Description,
		District:          r.District,
		County:            r.County,
		CPVCode:           r.CPV,
		ExecutionTermDays: r.TermDays,
	}
	if t, ok := parseDate(r.Published); ok {
		c.PublicationDate = t
	}
	return c
}

type portalPage struct {
	Total   int            `json:"total"`
	Results []portalRecord `json:"results"`
}

// Search pages through the API until the query is exhausted. Results
// come back sorted by contract id so identical queries yield identical
// slices regardless of portal ordering.
func (c *PortalClient) Search(ctx context.Context, q Query) ([]model.Contract, error) {
	var contracts []model.Contract
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		if q.MaxPages > 0 && page > q.MaxPages {
			break
		}

		pageURL, err := c.pageURL(q, page)
		if err != nil {
			return nil, err
		}

		body, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		var result portalPage
		if err := json.Unmarshal(body, &result); err != nil {
			// Some mirrors answer search requests with HTML
			stubs, htmlErr := ParseSearchHTML(string(body))
			if htmlErr != nil || len(stubs) == 0 {
				return nil, fmt.Errorf("page %d: parse response: %w", page, err)
			}
			added := 0
			for _, stub := range stubs {
				if !seen[stub.ID] {
					seen[stub.ID] = true
					contracts = append(contracts, stub)
					added++
				}
			}
			// A page of already-seen stubs means the mirror ran out
			if added == 0 {
				break
			}
			continue
		}
		if len(result.Results) == 0 {
			break
		}

		for _, rec := range result.Results {
			if rec.ID == "" || seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			contracts = append(contracts, rec.toContract())
		}

		if result.Total > 0 && len(contracts) >= result.Total {
			break
		}
	}

	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].ID < contracts[j].ID
	})
	return contracts, nil
}

func (c *PortalClient) pageURL(q Query, page int) (string, error) {
	u, err := url.Parse(c.baseURL + "/contratos")
	if err != nil {
		return "", fmt.Errorf("portal url: %w", err)
	}

	params := url.Values{}
	if q.District != "" {
		params.Set("distrito", q.District)
	}
	if q.Year > 0 {
		params.Set("ano", strconv.Itoa(q.Year))
	}
	params.Set("page", strconv.Itoa(page))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// get fetches one URL through the cache, the robots gate, the rate
// limiter and the retry loop, in that order.
func (c *PortalClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	key := cache.Key(rawURL)
	if c.responses != nil {
		if body, found := c.responses.Get(key); found {
			return body, nil
		}
	}

	allowed, crawlDelay, err := c.robots.allowed(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("disallowed by robots.txt: %s", rawURL)
	}
	if crawlDelay > 0 {
		if err := c.sleep(ctx, crawlDelay); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < portalMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := portalBackoffBase << (attempt - 1)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			if c.responses != nil {
				_ = c.responses.Set(key, body, 0)
			}
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *PortalClient) fetchOnce(ctx context.Context, rawURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("portal status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, false, fmt.Errorf("portal status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBytes)
	}
	body, err = io.ReadAll(reader)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}

// PortalProvider adapts a client+query pair to the Provider interface
type PortalProvider struct {
	Client *PortalClient
	Query  Query
}

// Contracts implements Provider
func (p *PortalProvider) Contracts(ctx context.Context) ([]model.Contract, error) {
	return p.Client.Search(ctx, p.Query)
}

var _ Provider = (*PortalProvider)(nil)
