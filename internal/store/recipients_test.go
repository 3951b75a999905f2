package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"palmcosmic/internal/zodiac"
)

func TestResolveSignFallbackChain(t *testing.T) {
	birth := time.Date(1994, 7, 30, 0, 0, 0, 0, time.UTC)

	r := Recipient{UserSign: "Leo", ProfileSign: "virgo", BirthDate: &birth}
	if sign, ok := r.ResolveSign(); !ok || sign != zodiac.Leo {
		t.Fatalf("expected users row to win, got %q", sign)
	}

	r = Recipient{ProfileSign: "virgo", BirthDate: &birth}
	if sign, ok := r.ResolveSign(); !ok || sign != zodiac.Virgo {
		t.Fatalf("expected profile fallback, got %q", sign)
	}

	r = Recipient{UserSign: "not-a-sign", BirthDate: &birth}
	if sign, ok := r.ResolveSign(); !ok || sign != zodiac.Leo {
		t.Fatalf("expected birth date derivation, got %q", sign)
	}

	r = Recipient{}
	if _, ok := r.ResolveSign(); ok {
		t.Fatal("recipient without signals must not resolve")
	}
}

func TestActiveRecipients(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	birth := time.Date(1990, 11, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "email", "first_name", "timezone", "user_sign", "profile_sign", "birth_date",
	}).
		AddRow("u1", "a@example.com", "Asha", "Asia/Kolkata", "scorpio", "", birth).
		AddRow("u2", "b@example.com", "", "", "", "", nil)
	mock.ExpectQuery("SELECT u.id, u.email").WillReturnRows(rows)

	store := NewContentStore(db)
	recipients, err := store.ActiveRecipients(context.Background())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(recipients))
	}
	if sign, ok := recipients[0].ResolveSign(); !ok || sign != zodiac.Scorpio {
		t.Fatalf("unexpected sign resolution %q", sign)
	}
	if recipients[1].BirthDate != nil {
		t.Fatal("expected nil birth date")
	}
}

func TestInsightCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	birth := time.Date(1988, 2, 1, 0, 0, 0, 0, time.UTC)
	birthTime := time.Date(0, 1, 1, 14, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "birth_date", "birth_time", "birth_place"}).
		AddRow("u1", birth, birthTime, "New Delhi, India").
		AddRow("u2", birth, nil, "")
	mock.ExpectQuery("SELECT u.id, COALESCE").WillReturnRows(rows)

	store := NewContentStore(db)
	users, err := store.InsightCandidates(context.Background())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].BirthTime == nil || users[0].BirthTime.Hour() != 14 {
		t.Fatalf("unexpected birth time %+v", users[0].BirthTime)
	}
	if users[1].BirthTime != nil {
		t.Fatal("expected nil birth time")
	}
}
