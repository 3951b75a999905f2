package generator

import (
	"encoding/json"
	"fmt"

	"palmcosmic/internal/astro"
	"palmcosmic/internal/timekey"
	"palmcosmic/internal/zodiac"
)

func periodLabel(g timekey.Granularity) string {
	switch g {
	case timekey.Weekly:
		return "weekly"
	case timekey.Monthly:
		return "monthly"
	case timekey.Tomorrow:
		return "tomorrow's"
	default:
		return "today's"
	}
}

func timeRef(g timekey.Granularity) string {
	switch g {
	case timekey.Weekly:
		return "this week"
	case timekey.Monthly:
		return "this month"
	case timekey.Tomorrow:
		return "tomorrow"
	default:
		return "today"
	}
}

func wordCount(g timekey.Granularity) string {
	switch g {
	case timekey.Weekly:
		return "250-400"
	case timekey.Monthly:
		return "300-500"
	default:
		return "150-250"
	}
}

// horoscopeSystemPrompt carries the strict output contract: fixed JSON
// shape, fixed section headers, jargon prohibition, counts and ranges.
func horoscopeSystemPrompt(g timekey.Granularity) string {
	// Tomorrow shares the daily shape; only the user message changes.
	promptPeriod := g
	if g == timekey.Tomorrow {
		promptPeriod = timekey.Daily
	}
	label := "daily"
	switch promptPeriod {
	case timekey.Weekly:
		label = "weekly"
	case timekey.Monthly:
		label = "monthly"
	}

	return fmt.Sprintf(`You are an expert astrologer writing horoscopes for a general audience. Given current planetary transits and a zodiac sign's characteristics, generate a %[1]s horoscope.

You MUST respond with ONLY valid JSON (no markdown, no code fences):

{
  "horoscope": "Structured %[1]s horoscope with labeled sections (%[2]s words total).",
  "daily_tip": "One actionable tip for %[3]s in plain English (1-2 sentences).",
  "dos": ["Short action item 1", "Short action item 2", "Short action item 3"],
  "donts": ["Short avoid item 1", "Short avoid item 2", "Short avoid item 3"],
  "lucky_number": 7,
  "lucky_color": "Blue",
  "mood": "Optimistic",
  "lucky_time": "10:00 AM - 12:00 PM",
  "focus_areas": ["Career", "Health"],
  "challenges": ["Impatience", "Overthinking"]
}

Rules for the "horoscope" field:
- Structure it with EXACTLY these section headers, each on its own line followed by a newline and the paragraph:
  **Overview**\n\n[General overview paragraph]\n\n**Love & Relationships**\n\n[Relationships paragraph]\n\n**Career & Finance**\n\n[Career paragraph]\n\n**Health & Wellness**\n\n[Health paragraph]
- Each section should be 2-4 sentences.
- Write in PLAIN ENGLISH. Do NOT mention planets, transits, houses, conjunctions, aspects, dashas, or any astrological jargon. The reader should NOT feel like they're reading a technical astrology report.
- NEVER start with "Dear" or any greeting.
- Use the planetary data to INFORM the content, but translate everything into everyday life advice and predictions.

Other rules:
- lucky_number: integer 1-99
- lucky_color: single color name
- mood: one word max
- lucky_time: 12-hour time range
- dos/donts: exactly 3 items each, under 8 words each, plain English
- focus_areas: 2-3 single words
- challenges: 2-3 single words
- daily_tip: plain English, no astrology terms`,
		label, wordCount(promptPeriod), timeRef(promptPeriod))
}

func horoscopeUserMessage(sign zodiac.Sign, g timekey.Granularity, transits astro.Transits, natal astro.NatalData) string {
	label := periodLabel(g)

	sun := natal.Chart.BigThree["sun"]
	sunSign := sun.Sign
	if sunSign == "" {
		sunSign = sign.Display()
	}
	sunDegree := "15"
	if sun.Degree != 0 {
		sunDegree = fmt.Sprintf("%g", sun.Degree)
	}

	activeTransits := natal.ActiveTransits
	if len(activeTransits) > 10 {
		activeTransits = activeTransits[:10]
	}

	planetsJSON, _ := json.MarshalIndent(transits.Planets, "", "  ")
	transitsJSON, _ := json.MarshalIndent(activeTransits, "", "  ")
	elementsJSON, _ := json.MarshalIndent(natal.Chart.Elements, "", "  ")

	return fmt.Sprintf(`Generate a %[1]s horoscope for %[2]s.

CURRENT PLANETARY POSITIONS:
%[3]s

SIGN: %[2]s
Sun position: %[4]s at %[5]s°

ACTIVE TRANSITS affecting %[2]s:
%[6]s

ELEMENTS: %[7]s

Generate the %[1]s horoscope JSON for %[2]s now. Do NOT start with "Dear" or greetings.`,
		label, sign.Display(), planetsJSON, sunSign, sunDegree, transitsJSON, elementsJSON)
}

const insightsSystemPrompt = `You are an expert Vedic and Western astrologer. Given a user's natal chart and current transits, generate their personalized daily insights.

You MUST respond with ONLY valid JSON (no markdown, no code fences):

{
  "lucky_number": 7,
  "lucky_color": "Blue",
  "lucky_time": "10:00 AM - 12:00 PM",
  "mood": "Optimistic",
  "daily_tip": "One concise, actionable tip for today (1-2 sentences).",
  "dos": ["Short action 1", "Short action 2", "Short action 3"],
  "donts": ["Short avoid 1", "Short avoid 2", "Short avoid 3"]
}

Rules:
- lucky_number: integer 1-99
- lucky_color: single color name (e.g. "Emerald Green", "Gold", "Royal Blue")
- lucky_time: 12-hour time range (e.g. "10:00 AM - 12:00 PM")
- mood: one word max (e.g. "Energized", "Reflective", "Passionate")
- daily_tip: Write in PLAIN SIMPLE ENGLISH. NEVER mention planets, transits, houses, dashas, conjunctions, aspects, or any astrological terms. Just give practical, actionable life advice like "Trust your gut on financial decisions today" or "Take a break from screens and spend time outdoors". The tip should feel like advice from a wise friend, NOT an astrologer.
- dos: exactly 3 items, under 8 words each. Plain English, no astrology jargon.
- donts: exactly 3 items, under 8 words each. Plain English, no astrology jargon.
- Use the planetary data to INFORM your insights, but NEVER expose planetary terms in the output. Translate everything into everyday language.`

func insightsUserMessage(dateKey string, natal astro.NatalData) string {
	big := natal.Chart.BigThree
	describe := func(key string) string {
		pos, ok := big[key]
		if !ok || pos.Sign == "" {
			return "Unknown"
		}
		return fmt.Sprintf("%s at %g°", pos.Sign, pos.Degree)
	}

	dashaLabel := "Unknown"
	if label, ok := natal.Dasha.CurrentPeriod["label"].(string); ok && label != "" {
		dashaLabel = label
	}

	activeTransits := natal.ActiveTransits
	if len(activeTransits) > 8 {
		activeTransits = activeTransits[:8]
	}
	transitsJSON, _ := json.MarshalIndent(activeTransits, "", "  ")

	return fmt.Sprintf(`Generate personalized daily insights for this user.

DATE: %s

NATAL CHART:
- Sun: %s
- Moon: %s
- Rising: %s

CURRENT DASHA: %s

ACTIVE TRANSITS:
%s

Generate the daily insights JSON now.`,
		dateKey, describe("sun"), describe("moon"), describe("rising"), dashaLabel, transitsJSON)
}
