package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"palmcosmic/internal/timekey"
)

// Kind is the content category. Closed set, same reasoning as
// timekey.Granularity.
type Kind string

const (
	KindHoroscope Kind = "horoscope"
	KindInsights  Kind = "insights"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind normalizes a content kind name.
func ParseKind(raw string) (Kind, error) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(raw)))
	switch candidate {
	case KindHoroscope, KindInsights:
		return candidate, nil
	}
	return "", fmt.Errorf("unknown content kind %q", raw)
}

// Source records where a payload came from.
type Source string

const (
	SourceUpstream Source = "upstream"
	SourceFallback Source = "fallback"
)

// Record is one cached content artifact. At most one record exists per
// cache id; once present, reads never regenerate for that identity.
type Record struct {
	CacheID     string
	Kind        Kind
	Granularity timekey.Granularity
	Subject     string
	TimeKey     string
	Payload     json.RawMessage
	Model       string
	Source      Source
	RequestID   string
	GeneratedAt time.Time
	ExpiresAt   time.Time
}

// ArchetypeCacheID builds the persisted identity for sign-shared
// content: sign_<granularity>_<sign>_<timeKey>.
func ArchetypeCacheID(g timekey.Granularity, sign, timeKey string) string {
	return fmt.Sprintf("sign_%s_%s_%s", g, strings.ToLower(sign), timeKey)
}

// UserCacheID builds the persisted identity for per-user content:
// user_<granularity>_<userID>_<timeKey>. User ids are opaque and kept
// case-sensitive.
func UserCacheID(g timekey.Granularity, userID, timeKey string) string {
	return fmt.Sprintf("user_%s_%s_%s", g, userID, timeKey)
}

// HoroscopePayload is the fixed schema for archetype horoscopes.
type HoroscopePayload struct {
	Horoscope   string   `json:"horoscope"`
	DailyTip    string   `json:"daily_tip"`
	Dos         []string `json:"dos"`
	Donts       []string `json:"donts"`
	LuckyNumber int      `json:"lucky_number"`
	LuckyColor  string   `json:"lucky_color"`
	Mood        string   `json:"mood"`
	LuckyTime   string   `json:"lucky_time"`
	FocusAreas  []string `json:"focus_areas"`
	Challenges  []string `json:"challenges"`
	Sign        string   `json:"sign,omitempty"`
	Period      string   `json:"period,omitempty"`
}

// InsightsPayload is the fixed schema for personalized daily insights.
type InsightsPayload struct {
	LuckyNumber  int      `json:"lucky_number"`
	LuckyColor   string   `json:"lucky_color"`
	LuckyTime    string   `json:"lucky_time"`
	Mood         string   `json:"mood"`
	DailyTip     string   `json:"daily_tip"`
	Dos          []string `json:"dos"`
	Donts        []string `json:"donts"`
	SunSign      string   `json:"sun_sign,omitempty"`
	MoonSign     string   `json:"moon_sign,omitempty"`
	RisingSign   string   `json:"rising_sign,omitempty"`
	CurrentDasha string   `json:"current_dasha,omitempty"`
}

// SectionHeaders are the narrative sections a horoscope must carry, in
// this order.
var SectionHeaders = []string{
	"**Overview**",
	"**Love & Relationships**",
	"**Career & Finance**",
	"**Health & Wellness**",
}

// jargonTerms must never leak into user-facing copy. The product voice
// is plain English regardless of how the facts were computed.
var jargonTerms = []string{
	"transit",
	"dasha",
	"conjunction",
	"natal",
	"retrograde",
	"planetary",
	"ascendant",
	"nakshatra",
}

// StripFences removes a markdown code fence the generation service may
// wrap around its JSON output.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseHoroscope decodes and validates generated horoscope output.
func ParseHoroscope(raw string) (HoroscopePayload, error) {
	var payload HoroscopePayload
	if err := json.Unmarshal([]byte(StripFences(raw)), &payload); err != nil {
		return HoroscopePayload{}, fmt.Errorf("decode horoscope: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return HoroscopePayload{}, err
	}
	return payload, nil
}

// ParseInsights decodes and validates generated insights output.
func ParseInsights(raw string) (InsightsPayload, error) {
	var payload InsightsPayload
	if err := json.Unmarshal([]byte(StripFences(raw)), &payload); err != nil {
		return InsightsPayload{}, fmt.Errorf("decode insights: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return InsightsPayload{}, err
	}
	return payload, nil
}

// Validate enforces the horoscope output contract.
func (p HoroscopePayload) Validate() error {
	if err := validateNarrative(p.Horoscope); err != nil {
		return err
	}
	if strings.TrimSpace(p.DailyTip) == "" {
		return fmt.Errorf("daily_tip is empty")
	}
	if err := validateShared(p.DailyTip, p.Dos, p.Donts, p.LuckyNumber, p.LuckyColor, p.Mood, p.LuckyTime); err != nil {
		return err
	}
	if err := validateWordList("focus_areas", p.FocusAreas); err != nil {
		return err
	}
	return validateWordList("challenges", p.Challenges)
}

// Validate enforces the insights output contract.
func (p InsightsPayload) Validate() error {
	if strings.TrimSpace(p.DailyTip) == "" {
		return fmt.Errorf("daily_tip is empty")
	}
	return validateShared(p.DailyTip, p.Dos, p.Donts, p.LuckyNumber, p.LuckyColor, p.Mood, p.LuckyTime)
}

func validateNarrative(narrative string) error {
	if strings.TrimSpace(narrative) == "" {
		return fmt.Errorf("horoscope narrative is empty")
	}
	pos := 0
	for _, header := range SectionHeaders {
		idx := strings.Index(narrative[pos:], header)
		if idx < 0 {
			return fmt.Errorf("narrative missing section %s", header)
		}
		pos += idx + len(header)
	}
	if err := checkJargon(narrative); err != nil {
		return err
	}
	return nil
}

func validateShared(tip string, dos, donts []string, luckyNumber int, color, mood, luckyTime string) error {
	if len(dos) != 3 {
		return fmt.Errorf("dos must have exactly 3 items, got %d", len(dos))
	}
	if len(donts) != 3 {
		return fmt.Errorf("donts must have exactly 3 items, got %d", len(donts))
	}
	for _, item := range append(append([]string{}, dos...), donts...) {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("dos/donts items must be non-empty")
		}
	}
	if luckyNumber < 1 || luckyNumber > 99 {
		return fmt.Errorf("lucky_number %d out of range 1-99", luckyNumber)
	}
	if strings.TrimSpace(color) == "" {
		return fmt.Errorf("lucky_color is empty")
	}
	if mood == "" || len(strings.Fields(mood)) != 1 {
		return fmt.Errorf("mood must be a single word, got %q", mood)
	}
	if strings.TrimSpace(luckyTime) == "" {
		return fmt.Errorf("lucky_time is empty")
	}
	return checkJargon(tip)
}

func validateWordList(field string, items []string) error {
	if len(items) < 2 || len(items) > 3 {
		return fmt.Errorf("%s must have 2-3 items, got %d", field, len(items))
	}
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("%s items must be non-empty", field)
		}
	}
	return nil
}

// checkJargon matches whole words only, so ordinary copy like
// "transition" is not mistaken for the term "transit".
func checkJargon(text string) error {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, word := range words {
		for _, term := range jargonTerms {
			if word == term || word == term+"s" {
				return fmt.Errorf("user-facing copy contains jargon term %q", term)
			}
		}
	}
	return nil
}
