package zodiac

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	sign, err := Parse(" Scorpio ")
	if err != nil || sign != Scorpio {
		t.Fatalf("expected scorpio, got %q (%v)", sign, err)
	}

	if _, err := Parse("ophiuchus"); err == nil {
		t.Fatal("expected error for unknown sign")
	}
}

func TestDisplay(t *testing.T) {
	if got := Sagittarius.Display(); got != "Sagittarius" {
		t.Fatalf("unexpected display name %q", got)
	}
}

func TestRepresentativeBirth(t *testing.T) {
	for _, sign := range AllSigns {
		info := sign.RepresentativeBirth()
		if info.Month < 1 || info.Month > 12 || info.Day < 1 || info.Day > 31 {
			t.Fatalf("invalid representative birth for %s: %+v", sign, info)
		}
		// The representative date must resolve back to the same sign.
		date := time.Date(2000, time.Month(info.Month), info.Day, 12, 0, 0, 0, time.UTC)
		if got := ForBirthDate(date); got != sign {
			t.Errorf("representative birth for %s resolves to %s", sign, got)
		}
	}
}

func TestForBirthDateBoundaries(t *testing.T) {
	cases := []struct {
		date string
		want Sign
	}{
		{"2000-03-20", Pisces},
		{"2000-03-21", Aries},
		{"2000-04-19", Aries},
		{"2000-04-20", Taurus},
		{"2000-12-21", Sagittarius},
		{"2000-12-22", Capricorn},
		{"2000-01-19", Capricorn},
		{"2000-01-20", Aquarius},
		{"2000-02-19", Pisces},
	}
	for _, tc := range cases {
		date, err := time.Parse("2006-01-02", tc.date)
		if err != nil {
			t.Fatal(err)
		}
		if got := ForBirthDate(date); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.date, tc.want, got)
		}
	}
}
