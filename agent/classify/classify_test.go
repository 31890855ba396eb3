package classify

import (
	"errors"
	"testing"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

func TestClassifyIssueTypes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		transcript string
		want       contractx.IssueType
	}{
		{"fraud", "Someone used my card without my permission", contractx.IssueFraud},
		{"fraud stolen", "my card was stolen yesterday", contractx.IssueFraud},
		{"billing dispute", "I was double charged for the same order", contractx.IssueBillingDispute},
		{"fee waiver", "Can you waive the annual fee this year", contractx.IssueFeeWaiver},
		{"transaction flag", "there is a suspicious charge I don't recognize", contractx.IssueTransactionFlag},
		{"escalation", "I want to speak to a manager", contractx.IssueEscalation},
		{"unknown", "hello I have a question about my account", contractx.IssueUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Classify(tc.transcript, "")
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if got.IssueType != tc.want {
				t.Fatalf("got %q, want %q", got.IssueType, tc.want)
			}
		})
	}
}

func TestClassifyFraudBeatsDispute(t *testing.T) {
	t.Parallel()

	// Matches both the fraud and dispute tables; fraud is more urgent.
	got, err := Classify("I want to dispute an unauthorized charge", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.IssueType != contractx.IssueFraud {
		t.Fatalf("got %q, want fraud to win over dispute", got.IssueType)
	}
}

func TestClassifyFraudBeatsFeeWaiver(t *testing.T) {
	t.Parallel()

	got, err := Classify("My card was stolen, and please waive the late fee while you sort it out", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.IssueType != contractx.IssueFraud {
		t.Fatalf("got %q, want fraud to win over fee waiver", got.IssueType)
	}
}

func TestClassifyExtractsFields(t *testing.T) {
	t.Parallel()

	got, err := Classify("I was overcharged $129.99 at Amazon on my card ending in 4242", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.IssueType != contractx.IssueBillingDispute {
		t.Fatalf("issue: got %q", got.IssueType)
	}
	if got.Amount == nil || *got.Amount != 129.99 {
		t.Fatalf("amount: got %v, want 129.99", got.Amount)
	}
	if got.Merchant != "Amazon" {
		t.Fatalf("merchant: got %q, want Amazon", got.Merchant)
	}
	if got.CardLast4 != "4242" {
		t.Fatalf("card last4: got %q, want 4242", got.CardLast4)
	}
}

func TestClassifyAmountInWords(t *testing.T) {
	t.Parallel()

	got, err := Classify("they charged me twice, 50 dollars each time", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Amount == nil || *got.Amount != 50 {
		t.Fatalf("amount: got %v, want 50", got.Amount)
	}
}

func TestClassifyCallerLast4Wins(t *testing.T) {
	t.Parallel()

	got, err := Classify("fraud on my card ending in 1111", "9001")
	if err != nil {
		t.Fatal(err)
	}
	if got.CardLast4 != "9001" {
		t.Fatalf("caller-supplied last4 must win: got %q", got.CardLast4)
	}
}

func TestClassifyEmptyTranscript(t *testing.T) {
	t.Parallel()

	if _, err := Classify("   ", ""); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}
