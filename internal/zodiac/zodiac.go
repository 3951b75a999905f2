package zodiac

import (
	"fmt"
	"strings"
	"time"
)

// Sign is one of the twelve fixed archetypes. Every piece of archetype
// content is generated once per sign per time partition and shared by
// all members of that sign.
type Sign string

const (
	Aries       Sign = "aries"
	Taurus      Sign = "taurus"
	Gemini      Sign = "gemini"
	Cancer      Sign = "cancer"
	Leo         Sign = "leo"
	Virgo       Sign = "virgo"
	Libra       Sign = "libra"
	Scorpio     Sign = "scorpio"
	Sagittarius Sign = "sagittarius"
	Capricorn   Sign = "capricorn"
	Aquarius    Sign = "aquarius"
	Pisces      Sign = "pisces"
)

// AllSigns in traditional order.
var AllSigns = []Sign{
	Aries, Taurus, Gemini, Cancer, Leo, Virgo,
	Libra, Scorpio, Sagittarius, Capricorn, Aquarius, Pisces,
}

// Display returns the capitalized sign name used in user-facing copy.
func (s Sign) Display() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func (s Sign) String() string {
	return string(s)
}

// Parse normalizes a sign name. Unknown names are an error so a typo in
// a request can never create a new cache partition.
func Parse(raw string) (Sign, error) {
	candidate := Sign(strings.ToLower(strings.TrimSpace(raw)))
	for _, sign := range AllSigns {
		if sign == candidate {
			return sign, nil
		}
	}
	return "", fmt.Errorf("unknown zodiac sign %q", raw)
}

// BirthInfo is a representative birth moment for a sign, used so that
// archetype generation produces one shared artifact per sign.
type BirthInfo struct {
	Month int
	Day   int
}

// Midpoint of each sign period, year 2000.
var representativeBirth = map[Sign]BirthInfo{
	Aries:       {Month: 4, Day: 5},
	Taurus:      {Month: 5, Day: 5},
	Gemini:      {Month: 6, Day: 5},
	Cancer:      {Month: 7, Day: 7},
	Leo:         {Month: 8, Day: 7},
	Virgo:       {Month: 9, Day: 7},
	Libra:       {Month: 10, Day: 7},
	Scorpio:     {Month: 11, Day: 7},
	Sagittarius: {Month: 12, Day: 7},
	Capricorn:   {Month: 1, Day: 5},
	Aquarius:    {Month: 2, Day: 4},
	Pisces:      {Month: 3, Day: 5},
}

// RepresentativeBirth returns the fixed birth date standing in for all
// members of the sign.
func (s Sign) RepresentativeBirth() BirthInfo {
	return representativeBirth[s]
}

// ForBirthDate resolves the sun sign from a calendar birth date.
func ForBirthDate(t time.Time) Sign {
	m, d := int(t.Month()), t.Day()
	switch {
	case (m == 3 && d >= 21) || (m == 4 && d <= 19):
		return Aries
	case (m == 4 && d >= 20) || (m == 5 && d <= 20):
		return Taurus
	case (m == 5 && d >= 21) || (m == 6 && d <= 20):
		return Gemini
	case (m == 6 && d >= 21) || (m == 7 && d <= 22):
		return Cancer
	case (m == 7 && d >= 23) || (m == 8 && d <= 22):
		return Leo
	case (m == 8 && d >= 23) || (m == 9 && d <= 22):
		return Virgo
	case (m == 9 && d >= 23) || (m == 10 && d <= 22):
		return Libra
	case (m == 10 && d >= 23) || (m == 11 && d <= 21):
		return Scorpio
	case (m == 11 && d >= 22) || (m == 12 && d <= 21):
		return Sagittarius
	case (m == 12 && d >= 22) || (m == 1 && d <= 19):
		return Capricorn
	case (m == 1 && d >= 20) || (m == 2 && d <= 18):
		return Aquarius
	default:
		return Pisces
	}
}
