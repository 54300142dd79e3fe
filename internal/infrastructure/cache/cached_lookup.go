package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"ETFRanker/internal/domain"
	"ETFRanker/internal/ports"
)

const keyPrefix = "etf:"

// CachedLookup serves store snapshots from a cache for up to ttl.
// Cache failures fall through to the wrapped lookup; lookup failures are never cached.
type CachedLookup struct {
	next   ports.RecordLookup
	store  Store
	ttl    time.Duration
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]struct{}
}

var (
	_ ports.RecordLookup = (*CachedLookup)(nil)
	_ ports.Invalidator  = (*CachedLookup)(nil)
)

// LookupDeps wires the decorator.
type LookupDeps struct {
	Next   ports.RecordLookup
	Store  Store
	TTL    time.Duration
	Logger *slog.Logger
}

func NewCachedLookup(deps LookupDeps) *CachedLookup {
	return &CachedLookup{
		next:   deps.Next,
		store:  deps.Store,
		ttl:    deps.TTL,
		logger: deps.Logger,
		keys:   map[string]struct{}{},
	}
}

func (c *CachedLookup) GetByIDs(ctx context.Context, ids []string) ([]domain.FundRecord, error) {
	if len(ids) == 0 {
		return []domain.FundRecord{}, nil
	}
	return c.cached(ctx, idsKey(ids), func() ([]domain.FundRecord, error) {
		return c.next.GetByIDs(ctx, ids)
	})
}

func (c *CachedLookup) GetAll(ctx context.Context, hint ports.Hint) ([]domain.FundRecord, error) {
	return c.cached(ctx, hintKey(hint), func() ([]domain.FundRecord, error) {
		return c.next.GetAll(ctx, hint)
	})
}

// Invalidate drops every key this instance has written.
func (c *CachedLookup) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.keys))
	for key := range c.keys {
		keys = append(keys, key)
	}
	c.keys = map[string]struct{}{}
	c.mu.Unlock()

	var firstErr error
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalidate %s: %w", key, err)
		}
	}
	c.debug("cache invalidated", "keys", len(keys))
	return firstErr
}

func (c *CachedLookup) cached(ctx context.Context, key string, load func() ([]domain.FundRecord, error)) ([]domain.FundRecord, error) {
	if c.next == nil {
		return nil, domain.Unavailable("cached lookup", fmt.Errorf("record lookup is not configured"))
	}
	if c.store == nil {
		return load()
	}

	raw, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.warn("cache read failed", "key", key, "error", err)
	case found:
		var records []domain.FundRecord
		if err := json.Unmarshal(raw, &records); err == nil {
			c.debug("cache hit", "key", key, "records", len(records))
			return records, nil
		}
		c.warn("cache entry corrupt", "key", key)
	}

	records, err := load()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(records)
	if err != nil {
		c.warn("cache encode failed", "key", key, "error", err)
		return records, nil
	}
	if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
		c.warn("cache write failed", "key", key, "error", err)
		return records, nil
	}

	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()

	return records, nil
}

// idsKey and hintKey JSON-encode their normalized inputs so that separator
// characters inside an id or keyword cannot make two requests share a key.
func idsKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	unique := sorted[:0]
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		unique = append(unique, id)
	}
	return keyPrefix + "ids:" + encodeKey(unique)
}

type hintKeyFields struct {
	Keywords         []string `json:"kw"`
	ExcludeLeveraged bool     `json:"lev"`
	MinFundSize      string   `json:"min"`
	BrokerFree       string   `json:"broker"`
}

func hintKey(hint ports.Hint) string {
	keywords := make([]string, 0, len(hint.Keywords))
	for _, kw := range hint.Keywords {
		keywords = append(keywords, strings.ToLower(kw))
	}
	sort.Strings(keywords)

	minSize := ""
	if hint.MinFundSizeMillions.Valid {
		minSize = hint.MinFundSizeMillions.Decimal.String()
	}

	return keyPrefix + "all:" + encodeKey(hintKeyFields{
		Keywords:         keywords,
		ExcludeLeveraged: hint.ExcludeLeveraged,
		MinFundSize:      minSize,
		BrokerFree:       hint.BrokerFree,
	})
}

func encodeKey(v interface{}) string {
	// Slices of strings and flat string structs always marshal.
	raw, _ := json.Marshal(v)
	return string(raw)
}

func (c *CachedLookup) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *CachedLookup) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
