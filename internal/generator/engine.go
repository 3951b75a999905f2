package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"palmcosmic/internal/astro"
	"palmcosmic/internal/content"
	"palmcosmic/internal/timekey"
	"palmcosmic/internal/zodiac"
	"palmcosmic/pkg/llm"
	"palmcosmic/pkg/logging"
)

// ErrUnparseable marks generation output that failed schema
// validation. No automatic retry: a second call costs real money, so
// the caller hands off to fallback instead.
var ErrUnparseable = errors.New("generation output unparseable")

// ContentStore is the persistence surface the engine needs.
type ContentStore interface {
	Get(ctx context.Context, cacheID string) (content.Record, bool, error)
	Put(ctx context.Context, rec content.Record) error
}

// FactProvider supplies structured astrological facts.
type FactProvider interface {
	Calculate(ctx context.Context, details astro.BirthDetails) (astro.NatalData, error)
	TransitsNow(ctx context.Context) (astro.Transits, error)
}

// Engine orchestrates cache check, fact fetch, generation, validation,
// and write-through.
type Engine struct {
	store  ContentStore
	facts  FactProvider
	llm    llm.Provider
	logger logging.Logger
	pacing time.Duration
	now    func() time.Time
	sleep  func(time.Duration)
}

type Option func(*Engine)

// WithPacing sets the blocking delay between generation calls in batch
// mode, to respect external rate limits.
func WithPacing(d time.Duration) Option {
	return func(e *Engine) { e.pacing = d }
}

// WithClock overrides time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(contentStore ContentStore, facts FactProvider, provider llm.Provider, logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  contentStore,
		facts:  facts,
		llm:    provider,
		logger: logger,
		pacing: 500 * time.Millisecond,
		now:    time.Now,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lookup treats store read errors as cache misses: redundant
// generation beats a hard failure.
func (e *Engine) lookup(ctx context.Context, cacheID string) (content.Record, bool) {
	rec, found, err := e.store.Get(ctx, cacheID)
	if err != nil {
		e.logger.WithError(err).WithField("cache_id", cacheID).Warn("Content store read failed, treating as miss")
		return content.Record{}, false
	}
	return rec, found
}

// writeThrough persists best-effort: the generated content is returned
// to the caller even when caching fails.
func (e *Engine) writeThrough(ctx context.Context, rec content.Record) {
	if err := e.store.Put(ctx, rec); err != nil {
		e.logger.WithError(err).WithField("cache_id", rec.CacheID).Warn("Content store write failed, returning uncached content")
	}
}

// GetOrGenerate returns the archetype horoscope record for the current
// partition, generating it on a miss. Errors are either
// astro.ErrUpstreamUnavailable or ErrUnparseable; callers fall back.
func (e *Engine) GetOrGenerate(ctx context.Context, sign zodiac.Sign, g timekey.Granularity) (content.Record, error) {
	now := e.now()
	tk := timekey.DeriveNow(g, now)
	cacheID := content.ArchetypeCacheID(g, sign.String(), tk)

	if rec, found := e.lookup(ctx, cacheID); found {
		return rec, nil
	}

	transits, err := e.facts.TransitsNow(ctx)
	if err != nil {
		return content.Record{}, err
	}

	return e.generateHoroscope(ctx, sign, g, tk, cacheID, transits)
}

func (e *Engine) generateHoroscope(ctx context.Context, sign zodiac.Sign, g timekey.Granularity, tk, cacheID string, transits astro.Transits) (content.Record, error) {
	// A failed per-sign natal call degrades to minimal placeholder
	// data; only the shared transits call is a hard upstream failure.
	natal, err := e.facts.Calculate(ctx, astro.RepresentativeBirthDetails(sign))
	if err != nil {
		e.logger.WithError(err).WithField("sign", sign.String()).Warn("Natal calculation failed, using minimal data")
		natal = astro.MinimalNatal(sign)
	}

	completion, err := e.llm.Complete(ctx, []llm.Message{
		{Role: "system", Content: horoscopeSystemPrompt(g)},
		{Role: "user", Content: horoscopeUserMessage(sign, g, transits, natal)},
	})
	if err != nil {
		return content.Record{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	payload, err := content.ParseHoroscope(completion.Content)
	if err != nil {
		return content.Record{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	payload.Sign = sign.Display()
	payload.Period = g.String()

	raw, err := json.Marshal(payload)
	if err != nil {
		return content.Record{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	now := e.now().UTC()
	rec := content.Record{
		CacheID:     cacheID,
		Kind:        content.KindHoroscope,
		Granularity: g,
		Subject:     sign.String(),
		TimeKey:     tk,
		Payload:     raw,
		Model:       completion.Model,
		Source:      content.SourceUpstream,
		RequestID:   uuid.NewString(),
		GeneratedAt: now,
		ExpiresAt:   timekey.ExpiresAt(g, now),
	}
	e.writeThrough(ctx, rec)
	return rec, nil
}

// GetOrGenerateWithFallback is the on-demand read path: any generation
// failure degrades to deterministic local content. The fallback record
// is not persisted so a later run can still produce the real thing.
func (e *Engine) GetOrGenerateWithFallback(ctx context.Context, sign zodiac.Sign, g timekey.Granularity) content.Record {
	rec, err := e.GetOrGenerate(ctx, sign, g)
	if err == nil {
		return rec
	}
	e.logger.WithError(err).WithFields(logging.Fields{
		"sign":   sign.String(),
		"period": g.String(),
	}).Warn("Generation failed, serving fallback content")

	now := e.now().UTC()
	tk := timekey.DeriveNow(g, now)
	payload := content.FallbackHoroscope(sign.Display(), g.String())
	raw, _ := json.Marshal(payload)
	return content.Record{
		CacheID:     content.ArchetypeCacheID(g, sign.String(), tk),
		Kind:        content.KindHoroscope,
		Granularity: g,
		Subject:     sign.String(),
		TimeKey:     tk,
		Payload:     raw,
		Source:      content.SourceFallback,
		GeneratedAt: now,
		ExpiresAt:   timekey.ExpiresAt(g, now),
	}
}

// BatchResult maps granularity -> sign -> success.
type BatchResult map[timekey.Granularity]map[string]bool

// GenerateBatch pre-generates archetype horoscopes for the requested
// granularities. Subjects are independent: one failure is recorded in
// the result map and never aborts the rest. A fixed pacing delay is
// inserted between generation calls.
func (e *Engine) GenerateBatch(ctx context.Context, granularities []timekey.Granularity, only *zodiac.Sign) (BatchResult, error) {
	if len(granularities) == 0 {
		granularities = timekey.AllGranularities
	}
	signs := zodiac.AllSigns
	if only != nil {
		signs = []zodiac.Sign{*only}
	}

	// One sky snapshot per run, shared by every subject.
	transits, err := e.facts.TransitsNow(ctx)
	if err != nil {
		return nil, err
	}

	results := make(BatchResult, len(granularities))
	generated, failed := 0, 0
	for _, g := range granularities {
		results[g] = make(map[string]bool, len(signs))
		now := e.now()
		tk := timekey.DeriveNow(g, now)

		for _, sign := range signs {
			cacheID := content.ArchetypeCacheID(g, sign.String(), tk)
			if _, found := e.lookup(ctx, cacheID); found {
				results[g][sign.String()] = true
				continue
			}

			if _, err := e.generateHoroscope(ctx, sign, g, tk, cacheID, transits); err != nil {
				e.logger.WithError(err).WithFields(logging.Fields{
					"sign":   sign.String(),
					"period": g.String(),
				}).Error("Failed to generate horoscope")
				results[g][sign.String()] = false
				failed++
				continue
			}
			results[g][sign.String()] = true
			generated++

			if e.pacing > 0 {
				e.sleep(e.pacing)
			}
		}
	}

	e.logger.WithFields(logging.Fields{
		"generated": generated,
		"failed":    failed,
		"periods":   len(granularities),
	}).Info("Horoscope batch complete")
	return results, nil
}
