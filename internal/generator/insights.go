package generator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"palmcosmic/internal/astro"
	"palmcosmic/internal/content"
	"palmcosmic/internal/store"
	"palmcosmic/internal/timekey"
	"palmcosmic/pkg/llm"
	"palmcosmic/pkg/logging"
)

// GenerateInsights produces the personalized daily record for one
// user, skipping work when today's record already exists.
func (e *Engine) GenerateInsights(ctx context.Context, user store.UserBirth) error {
	now := e.now()
	tk := timekey.Derive(timekey.Daily, now, 0)
	cacheID := content.UserCacheID(timekey.Daily, user.UserID, tk)

	if _, found := e.lookup(ctx, cacheID); found {
		return nil
	}

	hour, minute := 12, 0
	if user.BirthTime != nil {
		hour, minute = user.BirthTime.Hour(), user.BirthTime.Minute()
	}
	place := user.BirthPlace
	if place == "" {
		place = "New Delhi, India"
	}

	// Unlike the archetype path there is no minimal-natal degrade:
	// the whole point of this record is the personal chart.
	natal, err := e.facts.Calculate(ctx, astro.BirthDetails{
		Year:   user.BirthDate.Year(),
		Month:  int(user.BirthDate.Month()),
		Day:    user.BirthDate.Day(),
		Hour:   hour,
		Minute: minute,
		Second: 0,
		Place:  place,
	})
	if err != nil {
		return err
	}

	completion, err := e.llm.Complete(ctx, []llm.Message{
		{Role: "system", Content: insightsSystemPrompt},
		{Role: "user", Content: insightsUserMessage(tk, natal)},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	payload, err := content.ParseInsights(completion.Content)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	payload.SunSign = natal.Chart.BigThree["sun"].Sign
	payload.MoonSign = natal.Chart.BigThree["moon"].Sign
	payload.RisingSign = natal.Chart.BigThree["rising"].Sign
	if label, ok := natal.Dasha.CurrentPeriod["label"].(string); ok {
		payload.CurrentDasha = label
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	nowUTC := e.now().UTC()
	e.writeThrough(ctx, content.Record{
		CacheID:     cacheID,
		Kind:        content.KindInsights,
		Granularity: timekey.Daily,
		Subject:     user.UserID,
		TimeKey:     tk,
		Payload:     raw,
		Model:       completion.Model,
		Source:      content.SourceUpstream,
		RequestID:   uuid.NewString(),
		GeneratedAt: nowUTC,
		ExpiresAt:   timekey.ExpiresAt(timekey.Daily, nowUTC),
	})
	return nil
}

// InsightsBatch generates daily insights for all candidates,
// isolating per-user failures into the result map.
func (e *Engine) InsightsBatch(ctx context.Context, users []store.UserBirth) map[string]bool {
	results := make(map[string]bool, len(users))
	succeeded := 0
	for _, user := range users {
		if err := e.GenerateInsights(ctx, user); err != nil {
			e.logger.WithError(err).WithField("user_id", user.UserID).Error("Failed to generate insights")
			results[user.UserID] = false
			continue
		}
		results[user.UserID] = true
		succeeded++

		if e.pacing > 0 {
			e.sleep(e.pacing)
		}
	}

	e.logger.WithFields(logging.Fields{
		"users":     len(users),
		"succeeded": succeeded,
	}).Info("Insights batch complete")
	return results
}
