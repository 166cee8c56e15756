package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestClaim_FirstClaimWins(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res, err := db.Claim(ctx, "acme/widgets", 42, "delivery-1", time.Hour)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !res.Claimed {
		t.Fatal("expected first claim to succeed")
	}
	if res.Row == nil || res.Row.DeliveryID != "delivery-1" {
		t.Fatalf("expected row with delivery-1, got %+v", res.Row)
	}
}

func TestClaim_SecondClaimWithinCooldownLoses(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Claim(ctx, "acme/widgets", 42, "delivery-1", time.Hour); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	res, err := db.Claim(ctx, "acme/widgets", 42, "delivery-2", time.Hour)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if res.Claimed {
		t.Error("expected second claim within cooldown to lose")
	}
	// The row must still carry the winner's delivery ID.
	if res.Row.DeliveryID != "delivery-1" {
		t.Errorf("expected delivery-1 retained, got %q", res.Row.DeliveryID)
	}
}

func TestClaim_ExpiredCooldownReclaimable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Seed a claim whose triaged_at is two hours old.
	old := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339)
	_, err := db.Conn().Exec(`
		INSERT INTO triage_claims (repo, issue_number, delivery_id, triaged_at, duplicate_count)
		VALUES (?, ?, ?, ?, 3)`,
		"acme/widgets", 42, "delivery-old", old,
	)
	if err != nil {
		t.Fatalf("seeding claim: %v", err)
	}

	res, err := db.Claim(ctx, "acme/widgets", 42, "delivery-new", time.Hour)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !res.Claimed {
		t.Fatal("expected expired claim to be reclaimable")
	}
	if res.Row.DeliveryID != "delivery-new" {
		t.Errorf("expected delivery-new, got %q", res.Row.DeliveryID)
	}
	if res.Row.DuplicateCount != 0 {
		t.Errorf("expected duplicate_count reset on reclaim, got %d", res.Row.DuplicateCount)
	}
}

func TestClaim_YoungClaimNotReclaimable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	recent := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339)
	_, err := db.Conn().Exec(`
		INSERT INTO triage_claims (repo, issue_number, delivery_id, triaged_at, duplicate_count)
		VALUES (?, ?, ?, ?, 0)`,
		"acme/widgets", 42, "delivery-old", recent,
	)
	if err != nil {
		t.Fatalf("seeding claim: %v", err)
	}

	res, err := db.Claim(ctx, "acme/widgets", 42, "delivery-new", time.Hour)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if res.Claimed {
		t.Error("expected claim younger than cooldown to be unreclaimable")
	}
}

func TestClaim_ConcurrentAttemptsExactlyOneWinner(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]bool, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := db.Claim(ctx, "acme/widgets", 7, "delivery", time.Hour)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = res.Claimed
		}()
	}
	wg.Wait()

	winners := 0
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("attempt %d errored: %v", i, errs[i])
		}
		if results[i] {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}

func TestClaim_DistinctIssuesIndependent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for issue := 1; issue <= 3; issue++ {
		res, err := db.Claim(ctx, "acme/widgets", issue, "delivery", time.Hour)
		if err != nil {
			t.Fatalf("claim for issue %d failed: %v", issue, err)
		}
		if !res.Claimed {
			t.Errorf("expected claim for issue %d to succeed", issue)
		}
	}
}

func TestCompleteClaim(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Claim(ctx, "acme/widgets", 42, "delivery-1", time.Hour); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if err := db.CompleteClaim(ctx, "acme/widgets", 42, 3, "comment-99"); err != nil {
		t.Fatalf("completing claim: %v", err)
	}

	row, err := db.GetClaim(ctx, "acme/widgets", 42)
	if err != nil {
		t.Fatalf("getting claim: %v", err)
	}
	if row.DuplicateCount != 3 {
		t.Errorf("expected duplicate count 3, got %d", row.DuplicateCount)
	}
	if row.CommentExternalID != "comment-99" {
		t.Errorf("expected comment-99, got %q", row.CommentExternalID)
	}
}

func TestGetClaim_AbsentReturnsNil(t *testing.T) {
	db := openTestDB(t)

	row, err := db.GetClaim(context.Background(), "acme/widgets", 404)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil for absent claim, got %+v", row)
	}
}
