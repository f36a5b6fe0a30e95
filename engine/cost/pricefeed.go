package cost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/carthesien/enrich/engine/domain"
)

// PriceSource fetches the current energy price table.
type PriceSource interface {
	Fetch(ctx context.Context) (map[domain.Fuel]float64, error)
}

// StaticSource returns a fixed table. Used for tests and offline runs.
type StaticSource map[domain.Fuel]float64

func (s StaticSource) Fetch(context.Context) (map[domain.Fuel]float64, error) {
	return s, nil
}

// HTTPSource pulls prices from a JSON endpoint shaped like
// {"petrol": 1.82, "diesel": 1.71, "electric": 0.25}.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) Fetch(ctx context.Context) (map[domain.Fuel]float64, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("cost: price request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cost: fetch prices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cost: price endpoint returned %s", resp.Status)
	}
	var prices map[domain.Fuel]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, fmt.Errorf("cost: decode prices: %w", err)
	}
	return prices, nil
}

type priceTable struct {
	prices    map[domain.Fuel]float64
	fetchedAt time.Time
}

// Feed holds the latest price table behind an atomic pointer so readers on
// the enrichment hot path never block on a refresh.
type Feed struct {
	cur atomic.Pointer[priceTable]
}

// NewFeed seeds the feed with an initial table (may be nil).
func NewFeed(initial map[domain.Fuel]float64) *Feed {
	f := &Feed{}
	f.cur.Store(&priceTable{prices: initial, fetchedAt: time.Now()})
	return f
}

// Prices returns the current table and when it was fetched.
func (f *Feed) Prices() (map[domain.Fuel]float64, time.Time) {
	t := f.cur.Load()
	return t.prices, t.fetchedAt
}

func (f *Feed) store(prices map[domain.Fuel]float64) {
	f.cur.Store(&priceTable{prices: prices, fetchedAt: time.Now()})
}

// Poller refreshes a Feed from a PriceSource on an interval. A rate limiter
// caps calls to the upstream regardless of how the interval is tuned.
type Poller struct {
	source   PriceSource
	feed     *Feed
	interval time.Duration
	limiter  *rate.Limiter
	log      *slog.Logger
}

// NewPoller builds a poller; interval must be positive.
func NewPoller(source PriceSource, feed *Feed, interval time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		source:   source,
		feed:     feed,
		interval: interval,
		// At most one upstream call per minute, with a small burst for the
		// initial fetch plus an immediate manual refresh.
		limiter: rate.NewLimiter(rate.Every(time.Minute), 2),
		log:     log,
	}
}

// RefreshOnce fetches and swaps in a new table. A failed fetch leaves the
// previous table active.
func (p *Poller) RefreshOnce(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	prices, err := p.source.Fetch(ctx)
	if err != nil {
		return err
	}
	p.feed.store(prices)
	return nil
}

// Run polls until ctx is done. Errors are logged, not fatal.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.RefreshOnce(ctx); err != nil {
		p.log.Warn("price refresh failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RefreshOnce(ctx); err != nil {
				p.log.Warn("price refresh failed", "err", err)
			}
		}
	}
}
