package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsGate checks robots.txt before the portal client touches a host.
// Parsed files are cached per host for the lifetime of the client.
type robotsGate struct {
	mu         sync.RWMutex
	perHost    map[string]*robotstxt.RobotsData
	httpClient *http.Client
	userAgent  string
}

func newRobotsGate(client *http.Client, userAgent string) *robotsGate {
	return &robotsGate{
		perHost:    make(map[string]*robotstxt.RobotsData),
		httpClient: client,
		userAgent:  userAgent,
	}
}

// allowed reports whether rawURL may be fetched, plus any crawl delay
// the host requests. Unreachable robots.txt allows by default.
func (g *robotsGate) allowed(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse url: %w", err)
	}

	data, err := g.hostData(ctx, parsed.Scheme, parsed.Host)
	if err != nil {
		return true, 0, nil
	}

	delay := time.Duration(0)
	if group := data.FindGroup(g.userAgent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(parsed.Path, g.userAgent), delay, nil
}

func (g *robotsGate) hostData(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	g.mu.RLock()
	data, ok := g.perHost[host]
	g.mu.RUnlock()
	if ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s://%s/robots.txt", scheme, host), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Absent robots.txt means everything is fair game
	if resp.StatusCode == http.StatusNotFound {
		data, _ = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	} else {
		data, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("parse robots.txt: %w", err)
		}
	}

	g.mu.Lock()
	g.perHost[host] = data
	g.mu.Unlock()
	return data, nil
}
