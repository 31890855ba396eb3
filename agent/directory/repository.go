// Package directory serves customer and card records from a JSON fixture.
// Reads hand out copies; all mutation goes through the repository so the one
// contended field, the card fraud lock, can use compare-and-set semantics.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

type Config struct {
	DataPath string `envconfig:"DATA_PATH" split_words:"true" default:"data/customers.json"`
}

type fixture struct {
	Customers []contractx.Customer `json:"customers"`
}

// Repository is an explicitly passed handle over the customer fixture.
type Repository struct {
	mu        sync.RWMutex
	path      string
	customers []contractx.Customer
}

func Open(cfg Config) (*Repository, error) {
	path := strings.TrimSpace(cfg.DataPath)
	if path == "" {
		return nil, fmt.Errorf("%w: directory data path", contractx.ErrConfiguration)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read customer fixture: %w", err)
	}

	var data fixture
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse customer fixture: %w", err)
	}

	return &Repository{path: path, customers: data.Customers}, nil
}

func (r *Repository) GetCustomer(ctx context.Context, customerID string) (*contractx.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(customerID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}
	cp := cloneCustomer(r.customers[idx])
	return &cp, nil
}

func (r *Repository) ListCards(ctx context.Context, customerID string) ([]contractx.Card, error) {
	c, err := r.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return c.Cards, nil
}

func (r *Repository) SaveCustomer(ctx context.Context, customer *contractx.Customer) error {
	if customer == nil || strings.TrimSpace(customer.ID) == "" {
		return fmt.Errorf("%w: customer id is required", contractx.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(customer.ID)
	if idx < 0 {
		return fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customer.ID)
	}
	r.customers[idx] = cloneCustomer(*customer)
	r.persistLocked()
	return nil
}

// LockCard sets the fraud lock on the identified card. The check and the
// write happen under one lock, so two sessions locking the same card cannot
// interleave; locking an already-locked card is a no-op, not an error.
func (r *Repository) LockCard(ctx context.Context, customerID, last4 string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(customerID)
	if idx < 0 {
		return false, fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}

	cards := r.customers[idx].Cards
	for i := range cards {
		if cards[i].Last4 != last4 {
			continue
		}
		if cards[i].FraudLocked {
			return false, nil
		}
		cards[i].FraudLocked = true
		r.persistLocked()
		return true, nil
	}
	return false, fmt.Errorf("%w: card ending %s for customer %s", contractx.ErrNotFound, last4, customerID)
}

func (r *Repository) indexOf(customerID string) int {
	for i := range r.customers {
		if r.customers[i].ID == customerID {
			return i
		}
	}
	return -1
}

// persistLocked writes the fixture back to disk. A read-only filesystem is
// tolerated: the in-memory copy stays authoritative for the process.
func (r *Repository) persistLocked() {
	payload, err := json.MarshalIndent(fixture{Customers: r.customers}, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("marshal customer fixture")
		return
	}
	if err := os.WriteFile(r.path, payload, 0o644); err != nil {
		log.Debug().Err(err).Str("path", r.path).Msg("customer fixture not persisted")
	}
}

func cloneCustomer(in contractx.Customer) contractx.Customer {
	out := in
	out.Cards = append([]contractx.Card(nil), in.Cards...)
	out.Transactions = append([]contractx.Transaction(nil), in.Transactions...)
	if in.LastFeeWaiver != nil {
		t := *in.LastFeeWaiver
		out.LastFeeWaiver = &t
	}
	return out
}
