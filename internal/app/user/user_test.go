package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 123456789, time.FixedZone("X", 3600))

	u, err := New(NewParams{Email: "  Alice@Example.COM ", FullName: "  Alice  "}, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if u.ID == "" || u.Email != "alice@example.com" || u.FullName != "Alice" {
		t.Fatalf("user = %+v", u)
	}
	if u.Pic != DefaultPic || u.Bio != "" || u.Gender != GenderUnset {
		t.Fatalf("defaults = %+v", u)
	}
	if u.CreatedAt.Location() != time.UTC || u.CreatedAt.Nanosecond()%1000 != 0 || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Fatalf("timestamps = %v %v", u.CreatedAt, u.UpdatedAt)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(NewParams{Email: "Alice <a@example.com>", FullName: "Alice"}, time.Now()); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("display-name address: %v", err)
	}
	if _, err := New(NewParams{Email: "a@example.com", FullName: "A"}, time.Now()); !errors.Is(err, ErrInvalidFullName) {
		t.Errorf("short name: %v", err)
	}
	if _, err := New(NewParams{Email: "a@example.com", FullName: strings.Repeat("é", 51)}, time.Now()); !errors.Is(err, ErrInvalidFullName) {
		t.Errorf("long name: %v", err)
	}
}

func TestProfileUpdateApply(t *testing.T) {
	u, _ := New(NewParams{Email: "a@example.com", FullName: "Alice"}, time.Now())

	empty := ""
	bio := " hi "
	male := GenderMale
	got, err := ProfileUpdate{FullName: &empty, Bio: &bio, Gender: &male}.Apply(u, time.Now())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.FullName != "Alice" || got.Bio != "hi" || got.Gender != GenderMale {
		t.Fatalf("updated = %+v", got)
	}

	bad := Gender("robot")
	if _, err := (ProfileUpdate{Gender: &bad}).Apply(u, time.Now()); !errors.Is(err, ErrInvalidGender) {
		t.Fatalf("bad gender: %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	alice, _ := New(NewParams{Email: "alice@example.com", FullName: "Alice"}, time.Now())
	bob, _ := New(NewParams{Email: "bob@example.com", FullName: "Bob"}, time.Now())
	for _, u := range []User{alice, bob} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := repo.Create(ctx, alice); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate: %v", err)
	}
	if got, err := repo.GetByEmail(ctx, " ALICE@example.com"); err != nil || got.ID != alice.ID {
		t.Fatalf("GetByEmail = %+v, %v", got, err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID missing: %v", err)
	}

	many, err := repo.GetMany(ctx, []string{alice.ID, "missing", bob.ID})
	if err != nil || len(many) != 2 {
		t.Fatalf("GetMany = %v, %v", many, err)
	}

	alice.Email = "bob@example.com"
	if err := repo.Update(ctx, alice); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("email collision: %v", err)
	}

	found, err := repo.Search(ctx, "LI", 10)
	if err != nil || len(found) != 1 || found[0].ID != alice.ID {
		t.Fatalf("Search = %+v, %v", found, err)
	}
}
