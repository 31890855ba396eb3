package briefing

import (
	"strings"
	"testing"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

func TestBuildIsSelfContained(t *testing.T) {
	t.Parallel()

	got, err := Build(Input{
		CustomerName: "Maria Alvarez",
		IssueType:    contractx.IssueBillingDispute,
		CardNumber:   "4532015112834242",
		CardLast4:    "4242",
		SSNLast4:     "4821",
		Transcript:   "I was overcharged at Amazon",
		Summary:      "A billing dispute was opened under dsp_1.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, want := range []string{
		"Maria Alvarez",
		"billing dispute",
		"4532015112834242",
		"4821",
		"I was overcharged at Amazon",
		"A billing dispute was opened under dsp_1.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("briefing missing %q:\n%s", want, got)
		}
	}
}

func TestBuildFallbacks(t *testing.T) {
	t.Parallel()

	got, err := Build(Input{
		IssueType: contractx.IssueFraud,
		CardLast4: "4242",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "our customer") {
		t.Fatalf("missing name fallback:\n%s", got)
	}
	if !strings.Contains(got, "ending in 4242") {
		t.Fatalf("missing card fallback:\n%s", got)
	}
	if !strings.Contains(got, "on file") {
		t.Fatalf("missing ssn fallback:\n%s", got)
	}
}
