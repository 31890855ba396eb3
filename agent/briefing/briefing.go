// Package briefing builds the opening statement handed to the voice agent
// for an outbound call. The briefing deliberately braids the customer's
// full card number, SSN last-4, verbatim transcript, and resolution summary
// into one narrative: the call provider receives no other session access,
// so the text must be fully self-contained.
package briefing

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

//go:embed template/briefing.txt
var briefingRaw string

var briefingTmpl = template.Must(template.New("briefing").Parse(strings.TrimSpace(briefingRaw)))

// Input is everything the briefing needs. Fields left empty fall back to
// non-identifying placeholders rather than failing the call.
type Input struct {
	CustomerName string
	IssueType    contractx.IssueType
	CardNumber   string
	CardLast4    string
	SSNLast4     string
	Transcript   string
	Summary      string
}

type briefingData struct {
	CustomerName string
	IssueLabel   string
	CardNumber   string
	SSNLast4     string
	Transcript   string
	Summary      string
}

// Build renders the briefing text.
func Build(in Input) (string, error) {
	data := briefingData{
		CustomerName: strings.TrimSpace(in.CustomerName),
		IssueLabel:   in.IssueType.Label(),
		CardNumber:   strings.TrimSpace(in.CardNumber),
		SSNLast4:     strings.TrimSpace(in.SSNLast4),
		Transcript:   strings.TrimSpace(in.Transcript),
		Summary:      strings.TrimSpace(in.Summary),
	}
	if data.CustomerName == "" {
		data.CustomerName = "our customer"
	}
	if data.CardNumber == "" {
		data.CardNumber = "ending in " + in.CardLast4
	}
	if data.SSNLast4 == "" {
		data.SSNLast4 = "on file"
	}

	var sb strings.Builder
	if err := briefingTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render call briefing: %w", err)
	}
	return sb.String(), nil
}
