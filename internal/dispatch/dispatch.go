package dispatch

import (
	"context"
	"fmt"
	"time"

	"palmcosmic/internal/content"
	"palmcosmic/internal/mailer"
	"palmcosmic/internal/store"
	"palmcosmic/internal/timekey"
	"palmcosmic/internal/zodiac"
	"palmcosmic/pkg/logging"
)

// dailyTheme rotates the email framing by weekday.
type dailyTheme struct {
	Theme string
	Emoji string
}

var dailyThemes = map[time.Weekday]dailyTheme{
	time.Sunday:    {"Weekly Reflection", "🌟"},
	time.Monday:    {"Love & Relationships", "💕"},
	time.Tuesday:   {"Career & Money", "💼"},
	time.Wednesday: {"Health & Wellness", "🌿"},
	time.Thursday:  {"Personal Growth", "✨"},
	time.Friday:    {"Weekend Preview", "🎯"},
	time.Saturday:  {"Spiritual Insight", "🔮"},
}

// Mode selects what the email body carries: the full narrative or
// just the short daily tip.
type Mode string

const (
	ModeFull Mode = "full"
	ModeTip  Mode = "tip"
)

// RecipientSource lists who gets today's email.
type RecipientSource interface {
	ActiveRecipients(ctx context.Context) ([]store.Recipient, error)
}

// ContentSource resolves the horoscope for one sign. It never fails:
// generation errors degrade to deterministic fallback content.
type ContentSource interface {
	GetOrGenerateWithFallback(ctx context.Context, sign zodiac.Sign, g timekey.Granularity) content.Record
}

// Guard tracks which recipients already got today's email, so
// overlapping or re-run dispatches cannot double-send.
type Guard interface {
	Sent(ctx context.Context, recipientID, day string) (bool, error)
	Mark(ctx context.Context, recipientID, day string) error
}

// Result is the dispatch run summary.
type Result struct {
	Sent               int    `json:"sent"`
	Errors             int    `json:"errors"`
	SkippedTimezone    int    `json:"skipped_timezone"`
	SkippedAlreadySent int    `json:"skipped_already_sent"`
	GuardErrors        int    `json:"guard_errors"`
	Signs              int    `json:"signs"`
	Mode               string `json:"mode"`
	Theme              string `json:"theme"`
	Date               string `json:"date"`
}

// Dispatcher runs the scheduled daily email batch.
type Dispatcher struct {
	recipients RecipientSource
	contents   ContentSource
	guard      Guard
	sender     mailer.Sender
	logger     logging.Logger

	targetHour int
	defaultTZ  string
	appURL     string
	now        func() time.Time
}

type Option func(*Dispatcher)

// WithClock overrides time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(recipients RecipientSource, contents ContentSource, guard Guard, sender mailer.Sender, logger logging.Logger, targetHour int, defaultTZ, appURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		recipients: recipients,
		contents:   contents,
		guard:      guard,
		sender:     sender,
		logger:     logger,
		targetHour: targetHour,
		defaultTZ:  defaultTZ,
		appURL:     appURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// eligible reports whether now falls in the recipient's local target
// hour. An unknown timezone falls back to the configured default so a
// bad profile value never drops a subscriber silently.
func (d *Dispatcher) eligible(now time.Time, tz string) bool {
	if tz == "" {
		tz = d.defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc, err = time.LoadLocation(d.defaultTZ)
		if err != nil {
			loc = time.UTC
		}
	}
	return now.In(loc).Hour() == d.targetHour
}

// modeFor alternates full narrative and short tip deterministically by
// calendar day, so every recipient gets the same rendition and a rerun
// of the same day picks the same mode.
func modeFor(day string) Mode {
	sum := 0
	for _, r := range day {
		sum += int(r)
	}
	if sum%2 == 0 {
		return ModeFull
	}
	return ModeTip
}

func (d *Dispatcher) bodyFor(rec content.Record, sign zodiac.Sign) string {
	payload, err := content.ParseHoroscope(string(rec.Payload))
	if err != nil {
		// Stored records are validated on write, so this is a
		// should-not-happen path. Serve the deterministic tip.
		d.logger.WithError(err).WithField("cache_id", rec.CacheID).Warn("Stored payload unparseable, using short tip")
		return content.ShortTip(sign.Display())
	}
	return payload.Horoscope
}

// Run executes one dispatch pass: collect the recipients in their
// local target hour, group them by sign, resolve one body per
// remaining sign, then send with a duplicate guard. Content is never
// resolved for a sign with no sendable recipient, so an off-hour cron
// invocation costs no generation work. Per-recipient failures are
// counted, never fatal.
func (d *Dispatcher) Run(ctx context.Context) (Result, error) {
	now := d.now()
	day := now.UTC().Format("2006-01-02")
	theme, ok := dailyThemes[now.UTC().Weekday()]
	if !ok {
		theme = dailyThemes[time.Thursday]
	}
	mode := modeFor(day)

	result := Result{
		Mode:  string(mode),
		Theme: theme.Theme,
		Date:  day,
	}

	recipients, err := d.recipients.ActiveRecipients(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list recipients: %w", err)
	}

	// Eligibility is part of collection: a recipient outside their
	// local target hour never contributes a sign bucket, and a bucket
	// that collects nobody never triggers content resolution.
	groups := make(map[zodiac.Sign][]store.Recipient)
	for _, r := range recipients {
		if !d.eligible(now, r.Timezone) {
			result.SkippedTimezone++
			continue
		}
		sign, ok := r.ResolveSign()
		if !ok {
			// Nothing to personalize with.
			continue
		}
		groups[sign] = append(groups[sign], r)
	}
	result.Signs = len(groups)

	dateLabel := now.UTC().Format("Monday, January 2, 2006")

	for sign, group := range groups {
		// Short-tip days serve the deterministic tip table and skip
		// the generation path entirely.
		var body string
		if mode == ModeTip {
			body = content.ShortTip(sign.Display())
		} else {
			rec := d.contents.GetOrGenerateWithFallback(ctx, sign, timekey.Daily)
			body = d.bodyFor(rec, sign)
		}

		for _, r := range group {
			sent, err := d.guard.Sent(ctx, r.ID, day)
			if err != nil {
				// An unreachable guard must not stop the send; the
				// worst case is a duplicate, not a missed morning.
				result.GuardErrors++
			} else if sent {
				result.SkippedAlreadySent++
				continue
			}

			msg := mailer.Message{
				ToEmail: r.Email,
				ToName:  r.FirstName,
				Subject: fmt.Sprintf("%s %s · Your %s horoscope", theme.Emoji, theme.Theme, sign.Display()),
				Params: map[string]interface{}{
					"SUN_SIGN":    sign.Display(),
					"HOROSCOPE":   body,
					"THEME":       theme.Theme,
					"THEME_EMOJI": theme.Emoji,
					"DATE":        dateLabel,
					"FIRSTNAME":   firstNameOrDefault(r.FirstName),
					"APP_URL":     d.appURL,
				},
			}
			if err := d.sender.Send(ctx, msg); err != nil {
				d.logger.WithError(err).WithFields(logging.Fields{
					"recipient_id": r.ID,
					"sign":         sign.String(),
				}).Error("Failed to send daily email")
				result.Errors++
				continue
			}
			result.Sent++

			if err := d.guard.Mark(ctx, r.ID, day); err != nil {
				result.GuardErrors++
			}
		}
	}

	d.logger.WithFields(logging.Fields{
		"date":                 result.Date,
		"mode":                 result.Mode,
		"theme":                result.Theme,
		"sent":                 result.Sent,
		"errors":               result.Errors,
		"skipped_timezone":     result.SkippedTimezone,
		"skipped_already_sent": result.SkippedAlreadySent,
		"guard_errors":         result.GuardErrors,
		"signs":                result.Signs,
	}).Info("Daily email dispatch complete")
	return result, nil
}

func firstNameOrDefault(name string) string {
	if name == "" {
		return "Cosmic Soul"
	}
	return name
}
