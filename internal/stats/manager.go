package stats

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"qrent/server/internal/apperrors"
	"qrent/server/internal/cache"
	"qrent/server/internal/models"
)

const (
	// KeyNamespace prefixes every statistics cache key.
	KeyNamespace = "property-stats"

	// allRegionsSentinel is the canonical key segment for the unscoped case.
	allRegionsSentinel = "all"

	// keySeparator joins the namespace and the sorted region tokens.
	keySeparator = ":"
)

// tokenPattern matches a single lowercase hyphenated region token.
var tokenPattern = regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)

// Manager serves regional statistics from the cache when fresh and computes
// them otherwise. The cache is best-effort: a cache outage degrades latency,
// never correctness or availability of the response.
type Manager struct {
	calculator *Calculator
	client     cache.Client
	ttl        time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewManager creates a statistics cache manager with a fixed TTL.
func NewManager(calculator *Calculator, client cache.Client, ttl time.Duration, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Manager{
		calculator: calculator,
		client:     client,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// NormalizeTokens splits a raw regions input into trimmed, case-folded,
// deduplicated tokens, preserving first-seen order.
func NormalizeTokens(input string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if !seen[field] {
			seen[field] = true
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// CacheKey derives the canonical cache key for a token set. Tokens are sorted
// so permutations of the same set share one key; the empty set maps to the
// "all" sentinel.
func CacheKey(tokens []string) string {
	if len(tokens) == 0 {
		return KeyNamespace + keySeparator + allRegionsSentinel
	}
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return KeyNamespace + keySeparator + strings.Join(sorted, keySeparator)
}

// GetRegionalStats returns the statistics for the requested region tokens,
// serving from cache when a fresh entry exists. On a hit the entry comes back
// with CacheHit=true and the timestamp refreshed to the read time. On a miss,
// or on any cache-read failure, the statistics are computed and written back
// with the configured TTL; cache-write failures are logged and swallowed.
func (m *Manager) GetRegionalStats(ctx context.Context, regionsInput string) (*models.StatsResponse, error) {
	tokens := NormalizeTokens(regionsInput)
	for _, token := range tokens {
		if !tokenPattern.MatchString(token) {
			return nil, apperrors.NewValidation("regions", "invalid region token: "+token)
		}
	}

	key := CacheKey(tokens)

	raw, err := m.client.Get(ctx, key)
	if err == nil {
		var entry models.StatsResponse
		if unmarshalErr := json.Unmarshal([]byte(raw), &entry); unmarshalErr == nil {
			entry.CacheHit = true
			entry.Timestamp = m.now()
			return &entry, nil
		}
		m.logger.WithField("key", key).Warn("Discarding undecodable stats cache entry")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		m.logger.WithError(err).WithField("key", key).Warn("Stats cache read failed, computing directly")
	}

	regions, err := m.calculator.Compute(ctx, tokens)
	if err != nil {
		return nil, err
	}

	entry := &models.StatsResponse{
		Regions:   regions,
		Timestamp: m.now(),
		CacheHit:  false,
	}

	if payload, marshalErr := json.Marshal(entry); marshalErr == nil {
		if setErr := m.client.SetWithTTL(ctx, key, string(payload), m.ttl); setErr != nil {
			m.logger.WithError(setErr).WithField("key", key).Warn("Stats cache write failed")
		}
	}

	return entry, nil
}

// Invalidate deletes every key under the statistics namespace in one batch.
// It is best-effort housekeeping: failures are logged and swallowed, and an
// empty namespace is a no-op, so the caller always sees success.
func (m *Manager) Invalidate(ctx context.Context) {
	keys, err := m.client.KeysByPrefix(ctx, KeyNamespace+keySeparator)
	if err != nil {
		m.logger.WithError(err).Warn("Stats cache invalidation failed to enumerate keys")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := m.client.DeleteMany(ctx, keys); err != nil {
		m.logger.WithError(err).Warn("Stats cache invalidation failed to delete keys")
		return
	}
	m.logger.WithField("deleted", len(keys)).Info("Stats cache invalidated")
}

// Warm recomputes the all-regions entry and writes it to the cache, so the
// most common request stays cheap after TTL expiry or invalidation.
func (m *Manager) Warm(ctx context.Context) error {
	regions, err := m.calculator.Compute(ctx, nil)
	if err != nil {
		return err
	}

	entry := &models.StatsResponse{
		Regions:   regions,
		Timestamp: m.now(),
		CacheHit:  false,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := m.client.SetWithTTL(ctx, CacheKey(nil), string(payload), m.ttl); err != nil {
		m.logger.WithError(err).Warn("Stats cache warm write failed")
	}
	return nil
}
