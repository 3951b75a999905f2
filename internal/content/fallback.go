package content

import (
	"strings"
)

// Fallback heuristics: deterministic, local-only content used when the
// fact provider or generation service is down. The same subject always
// gets the same variant; different subjects get varied content. Table
// lookups only, so this path can never fail.

var fallbackTips = []string{
	"Trust your intuition and follow your heart today.",
	"Focus on building meaningful connections.",
	"Take time to reflect on your goals and aspirations.",
	"Embrace new opportunities that come your way.",
	"Stay positive and maintain a balanced perspective.",
}

var fallbackDos = [][]string{
	{"Focus on your priorities", "Practice gratitude", "Stay organized"},
	{"Connect with friends", "Try something new", "Exercise regularly"},
	{"Set clear boundaries", "Express yourself", "Rest when needed"},
	{"Plan ahead", "Be patient", "Show kindness"},
	{"Stay focused", "Communicate clearly", "Take breaks"},
}

var fallbackDonts = [][]string{
	{"Avoid overthinking", "Don't rush decisions", "Skip negative thoughts"},
	{"Avoid conflicts", "Don't overcommit", "Skip junk food"},
	{"Avoid procrastination", "Don't ignore intuition", "Skip drama"},
	{"Avoid stress", "Don't be too critical", "Skip comparisons"},
	{"Avoid distractions", "Don't neglect self-care", "Skip negativity"},
}

var fallbackColors = []string{"Blue", "Green", "Yellow", "Purple", "Red", "Orange"}

var fallbackMoods = []string{"Optimistic", "Energetic", "Calm", "Confident", "Creative"}

var fallbackFocusAreas = [][]string{
	{"Career", "Health"},
	{"Relationships", "Creativity"},
	{"Finances", "Rest"},
	{"Learning", "Family"},
	{"Communication", "Balance"},
}

var fallbackChallenges = [][]string{
	{"Impatience", "Overthinking"},
	{"Distraction", "Doubt"},
	{"Restlessness", "Worry"},
	{"Hesitation", "Fatigue"},
	{"Rushing", "Comparison"},
}

var fallbackOverviews = []string{
	"Today brings new energy your way. Stay open to opportunities and keep your plans flexible.",
	"A steady, productive stretch lies ahead. Small consistent steps will carry you further than big leaps.",
	"The day favors reflection over action. Give yourself room to think before committing to anything new.",
	"Momentum is on your side. Projects you have been putting off will move faster than expected.",
	"A quiet confidence serves you well today. Let results speak before you do.",
}

var fallbackRelationships = []string{
	"Conversations flow more easily than usual. Reach out to someone you have been meaning to reconnect with.",
	"Patience with loved ones pays off. Listen fully before responding.",
	"Shared plans benefit from your input today. Say what you actually want.",
	"Small gestures matter more than grand ones. A kind word lands well.",
	"Give the people close to you a little extra room. Space now strengthens the bond later.",
}

var fallbackCareer = []string{
	"Focus on finishing rather than starting. One completed task outweighs three half-done ones.",
	"A money decision benefits from a second look. Sleep on anything that feels rushed.",
	"Your practical side is strong today. Use it to sort out something you have been avoiding.",
	"Collaboration moves work forward. Ask for help where you usually push through alone.",
	"Keep your commitments light. An open calendar lets you catch the right opportunity.",
}

var fallbackHealth = []string{
	"Your energy responds well to routine. Eat on time, move a little, and rest properly.",
	"Step away from screens when you can. A short walk resets your focus.",
	"Listen to what your body is telling you. Fatigue is information, not weakness.",
	"Drink more water than you think you need, and stretch before the day gets busy.",
	"Guard your evening. Winding down early pays for itself tomorrow.",
}

// seedFor derives a stable index seed from a subject identity string.
func seedFor(subject string) int {
	seed := 0
	for _, r := range strings.ToLower(subject) {
		seed += int(r)
	}
	if seed < 0 {
		seed = -seed
	}
	return seed
}

// FallbackHoroscope returns schema-valid horoscope content for any
// subject, without touching the network.
func FallbackHoroscope(subject, period string) HoroscopePayload {
	seed := seedFor(subject)
	i := seed % len(fallbackTips)

	narrative := strings.Join([]string{
		SectionHeaders[0], "", fallbackOverviews[seed%len(fallbackOverviews)], "",
		SectionHeaders[1], "", fallbackRelationships[seed%len(fallbackRelationships)], "",
		SectionHeaders[2], "", fallbackCareer[seed%len(fallbackCareer)], "",
		SectionHeaders[3], "", fallbackHealth[seed%len(fallbackHealth)],
	}, "\n")

	return HoroscopePayload{
		Horoscope:   narrative,
		DailyTip:    fallbackTips[i],
		Dos:         fallbackDos[i],
		Donts:       fallbackDonts[i],
		LuckyNumber: (seed % 9) + 1,
		LuckyColor:  fallbackColors[seed%len(fallbackColors)],
		Mood:        fallbackMoods[seed%len(fallbackMoods)],
		LuckyTime:   "10:00 AM - 12:00 PM",
		FocusAreas:  fallbackFocusAreas[seed%len(fallbackFocusAreas)],
		Challenges:  fallbackChallenges[seed%len(fallbackChallenges)],
		Sign:        subject,
		Period:      period,
	}
}

// FallbackInsights returns schema-valid insights content for any
// subject.
func FallbackInsights(subject string) InsightsPayload {
	seed := seedFor(subject)
	i := seed % len(fallbackTips)

	return InsightsPayload{
		LuckyNumber: (seed % 9) + 1,
		LuckyColor:  fallbackColors[seed%len(fallbackColors)],
		LuckyTime:   "10:00 AM - 12:00 PM",
		Mood:        fallbackMoods[seed%len(fallbackMoods)],
		DailyTip:    fallbackTips[i],
		Dos:         fallbackDos[i],
		Donts:       fallbackDonts[i],
	}
}

// ShortTip returns the one-line tip used when the dispatcher runs in
// short-tip mode and no generated record is available.
func ShortTip(subject string) string {
	seed := seedFor(subject)
	return fallbackTips[seed%len(fallbackTips)]
}
