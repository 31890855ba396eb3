package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

const testFixture = `{
  "customers": [
    {
      "id": "cust_001",
      "name": "Maria Alvarez",
      "last4Ssn": "4821",
      "cards": [
        {"last4": "4242", "fullNumber": "4532015112834242", "fraudLocked": false}
      ],
      "transactions": [
        {"id": "txn_1001", "merchant": "Amazon", "amount": 129.99, "date": "2026-08-20", "flagged": false}
      ]
    }
  ]
}`

func openTestRepository(t *testing.T) *Repository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "customers.json")
	if err := os.WriteFile(path, []byte(testFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, err := Open(Config{DataPath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return repo
}

func TestGetCustomerReturnsCopy(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	ctx := context.Background()

	c, err := repo.GetCustomer(ctx, "cust_001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	c.Cards[0].FraudLocked = true

	fresh, err := repo.GetCustomer(ctx, "cust_001")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Cards[0].FraudLocked {
		t.Fatal("repository state was mutated through a returned copy")
	}
}

func TestGetCustomerMissing(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	if _, err := repo.GetCustomer(context.Background(), "cust_404"); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLockCard(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	ctx := context.Background()

	changed, err := repo.LockCard(ctx, "cust_001", "4242")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !changed {
		t.Fatal("first lock must report a change")
	}

	changed, err = repo.LockCard(ctx, "cust_001", "4242")
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if changed {
		t.Fatal("locking an already-locked card must be a no-op")
	}

	c, err := repo.GetCustomer(ctx, "cust_001")
	if err != nil {
		t.Fatal(err)
	}
	if !c.Cards[0].FraudLocked {
		t.Fatal("lock was not recorded")
	}
}

func TestLockCardMissingCard(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	if _, err := repo.LockCard(context.Background(), "cust_001", "0000"); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSaveCustomerRoundTrip(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	ctx := context.Background()

	c, err := repo.GetCustomer(ctx, "cust_001")
	if err != nil {
		t.Fatal(err)
	}
	c.Transactions[0].Flagged = true
	if err := repo.SaveCustomer(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}

	fresh, err := repo.GetCustomer(ctx, "cust_001")
	if err != nil {
		t.Fatal(err)
	}
	if !fresh.Transactions[0].Flagged {
		t.Fatal("saved change was lost")
	}
}

func TestOpenRejectsMissingPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{DataPath: "  "}); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("got %v, want ErrConfiguration", err)
	}
}
