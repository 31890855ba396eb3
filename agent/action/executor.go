// Package action performs the mock banking action for a classified issue.
// The set of actions is closed: dispatch is a finite table keyed by issue
// type, so adding an action means adding an entry here.
package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

// feeWaiverWindow is the lookback period for the fee-waiver approval policy:
// approve only when the customer has no waiver inside it.
const feeWaiverWindow = 30 * 24 * time.Hour

type Request struct {
	CustomerID string
	CardLast4  string
	IssueType  contractx.IssueType
	Fields     contractx.Classification
}

type handlerFunc func(ctx context.Context, e *Executor, req Request, customer *contractx.Customer) (contractx.Resolution, error)

var handlers = map[contractx.IssueType]handlerFunc{
	contractx.IssueFraud:           handleFraud,
	contractx.IssueBillingDispute:  handleBillingDispute,
	contractx.IssueFeeWaiver:       handleFeeWaiver,
	contractx.IssueTransactionFlag: handleTransactionFlag,
	contractx.IssueEscalation:      handleEscalation,
	contractx.IssueUnknown:         handleEscalation,
}

type Executor struct {
	dir   contractx.Directory
	now   func() time.Time
	newID func(prefix string) string
}

func New(dir contractx.Directory) (*Executor, error) {
	if dir == nil {
		return nil, fmt.Errorf("%w: customer directory is required", contractx.ErrConfiguration)
	}
	return &Executor{
		dir:   dir,
		now:   time.Now,
		newID: newID,
	}, nil
}

// Execute performs exactly one mock action and returns the resolution. The
// directory mutations it makes (card lock, transaction flag) are idempotent
// under retry.
func (e *Executor) Execute(ctx context.Context, req Request) (contractx.Resolution, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return contractx.Resolution{}, fmt.Errorf("%w: customer id is required", contractx.ErrValidation)
	}
	if !req.IssueType.Valid() {
		return contractx.Resolution{}, fmt.Errorf("%w: issue type %q", contractx.ErrValidation, req.IssueType)
	}

	customer, err := e.dir.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return contractx.Resolution{}, err
	}
	if req.CardLast4 != "" && customer.CardByLast4(req.CardLast4) == nil {
		return contractx.Resolution{}, fmt.Errorf("%w: card ending %s", contractx.ErrNotFound, req.CardLast4)
	}

	res, err := handlers[req.IssueType](ctx, e, req, customer)
	if err != nil {
		return contractx.Resolution{}, err
	}

	log.Info().
		Str("customer_id", req.CustomerID).
		Str("issue_type", string(req.IssueType)).
		Str("reference", res.Reference()).
		Msg("action executed")
	return res, nil
}

func handleFraud(ctx context.Context, e *Executor, req Request, customer *contractx.Customer) (contractx.Resolution, error) {
	if req.CardLast4 != "" {
		changed, err := e.dir.LockCard(ctx, customer.ID, req.CardLast4)
		if err != nil {
			return contractx.Resolution{}, err
		}
		if !changed {
			log.Debug().Str("card_last4", req.CardLast4).Msg("card already fraud-locked")
		}
	}
	approved := true
	return contractx.Resolution{
		CaseID:   e.newID("case"),
		Approved: &approved,
		Detail:   "fraud alert filed and card locked",
	}, nil
}

func handleBillingDispute(ctx context.Context, e *Executor, req Request, customer *contractx.Customer) (contractx.Resolution, error) {
	return contractx.Resolution{
		DisputeID: e.newID("dsp"),
		Amount:    req.Fields.Amount,
		Detail:    disputeDetail(req.Fields),
	}, nil
}

func handleFeeWaiver(ctx context.Context, e *Executor, req Request, customer *contractx.Customer) (contractx.Resolution, error) {
	now := e.now().UTC()
	approved := customer.LastFeeWaiver == nil || now.Sub(*customer.LastFeeWaiver) > feeWaiverWindow

	res := contractx.Resolution{
		TicketID: e.newID("tkt"),
		Approved: &approved,
	}
	if !approved {
		res.Detail = "denied: a fee waiver was already granted in the last 30 days"
		return res, nil
	}

	res.Detail = "fee waiver approved"
	customer.LastFeeWaiver = &now
	if err := e.dir.SaveCustomer(ctx, customer); err != nil {
		return contractx.Resolution{}, err
	}
	return res, nil
}

func handleTransactionFlag(ctx context.Context, e *Executor, req Request, customer *contractx.Customer) (contractx.Resolution, error) {
	res := contractx.Resolution{
		TicketID: e.newID("tkt"),
		Detail:   "transaction flagged for review",
	}

	tx := matchTransaction(customer.Transactions, req.Fields)
	if tx == nil {
		return res, nil
	}
	if tx.Flagged {
		return res, nil
	}
	tx.Flagged = true
	if err := e.dir.SaveCustomer(ctx, customer); err != nil {
		return contractx.Resolution{}, err
	}
	return res, nil
}

func handleEscalation(ctx context.Context, e *Executor, req Request, customer *contractx.Customer) (contractx.Resolution, error) {
	return contractx.Resolution{
		TicketID:  e.newID("tkt"),
		Escalated: true,
		Detail:    "escalated to a human agent",
	}, nil
}

func matchTransaction(txs []contractx.Transaction, fields contractx.Classification) *contractx.Transaction {
	for i := range txs {
		if fields.Merchant != "" && strings.EqualFold(txs[i].Merchant, fields.Merchant) {
			return &txs[i]
		}
		if fields.Amount != nil && txs[i].Amount == *fields.Amount {
			return &txs[i]
		}
	}
	return nil
}

func disputeDetail(fields contractx.Classification) string {
	switch {
	case fields.Merchant != "" && fields.Amount != nil:
		return fmt.Sprintf("dispute opened for $%.2f at %s", *fields.Amount, fields.Merchant)
	case fields.Merchant != "":
		return fmt.Sprintf("dispute opened for charge at %s", fields.Merchant)
	case fields.Amount != nil:
		return fmt.Sprintf("dispute opened for $%.2f", *fields.Amount)
	default:
		return "dispute opened"
	}
}

func newID(prefix string) string {
	return prefix + "_" + strings.Split(uuid.NewString(), "-")[0]
}
