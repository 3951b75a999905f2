package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"palmcosmic/internal/zodiac"
)

// Recipient is an email subscriber with whatever sign signals we have
// on file. Sign resolution is three-tier: the users row, then the
// profile row, then derivation from a birth date.
type Recipient struct {
	ID          string
	Email       string
	FirstName   string
	Timezone    string
	UserSign    string
	ProfileSign string
	BirthDate   *time.Time
}

// ResolveSign walks the fallback chain. ok is false only when no
// signal at all is available, in which case the recipient cannot be
// personalized and is skipped.
func (r Recipient) ResolveSign() (zodiac.Sign, bool) {
	if sign, err := zodiac.Parse(r.UserSign); err == nil {
		return sign, true
	}
	if sign, err := zodiac.Parse(r.ProfileSign); err == nil {
		return sign, true
	}
	if r.BirthDate != nil {
		return zodiac.ForBirthDate(*r.BirthDate), true
	}
	return "", false
}

// ActiveRecipients returns subscribers eligible for the daily email:
// active subscriptions only.
func (s *ContentStore) ActiveRecipients(ctx context.Context) ([]Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, COALESCE(u.first_name, ''),
		       COALESCE(u.timezone, p.timezone, ''),
		       COALESCE(u.zodiac_sign, ''), COALESCE(p.zodiac_sign, ''),
		       COALESCE(u.birth_date, p.birth_date)
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		WHERE u.subscription_status = 'active'
		ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("query active recipients: %w", err)
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var r Recipient
		var birthDate sql.NullTime
		if err := rows.Scan(&r.ID, &r.Email, &r.FirstName, &r.Timezone,
			&r.UserSign, &r.ProfileSign, &birthDate); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		if birthDate.Valid {
			bd := birthDate.Time
			r.BirthDate = &bd
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// UserBirth carries the birth facts needed to personalize insights.
type UserBirth struct {
	UserID     string
	BirthDate  time.Time
	BirthTime  *time.Time
	BirthPlace string
}

// InsightCandidates returns users entitled to personalized generation
// (active or trialing) that have a birth date on file.
func (s *ContentStore) InsightCandidates(ctx context.Context) ([]UserBirth, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, COALESCE(u.birth_date, p.birth_date), p.birth_time,
		       COALESCE(p.birth_place, '')
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		WHERE u.subscription_status IN ('active', 'trialing')
		  AND COALESCE(u.birth_date, p.birth_date) IS NOT NULL
		ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("query insight candidates: %w", err)
	}
	defer rows.Close()

	var users []UserBirth
	for rows.Next() {
		user, err := scanUserBirth(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UserBirthByID fetches the birth facts for one user, for targeted
// regeneration. The bool reports presence.
func (s *ContentStore) UserBirthByID(ctx context.Context, userID string) (UserBirth, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, COALESCE(u.birth_date, p.birth_date), p.birth_time,
		       COALESCE(p.birth_place, '')
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		WHERE u.id = $1
		  AND COALESCE(u.birth_date, p.birth_date) IS NOT NULL`, userID)

	user, err := scanUserBirth(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UserBirth{}, false, nil
	}
	if err != nil {
		return UserBirth{}, false, err
	}
	return user, true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserBirth(row rowScanner) (UserBirth, error) {
	var user UserBirth
	var birthTime sql.NullTime
	if err := row.Scan(&user.UserID, &user.BirthDate, &birthTime, &user.BirthPlace); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserBirth{}, err
		}
		return UserBirth{}, fmt.Errorf("scan user birth: %w", err)
	}
	if birthTime.Valid {
		bt := birthTime.Time
		user.BirthTime = &bt
	}
	return user, nil
}
