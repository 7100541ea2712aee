package baselines

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
)

const EvidenceName = "evidence"

const clarificationText = "Which place do you mean? Please clarify."

// Evidence answers extractively: it repeats the preferred piece of evidence,
// official sources first.
type Evidence struct{}

func NewEvidence() *Evidence { return &Evidence{} }

func (*Evidence) Name() string { return EvidenceName }

func (*Evidence) Generate(_ context.Context, q dataset.Query, evidence []dataset.Evidence) (harness.Prediction, error) {
	p := harness.Prediction{QueryID: q.ID, SystemName: EvidenceName}
	if len(evidence) == 0 {
		p.RawAnswer = clarificationText
		p.AskedClarification = true
		return p, nil
	}

	chosen := preferredEvidence(evidence)
	answer := strings.TrimSpace(chosen.Text)
	if chosen.AsOf != "" {
		answer = fmt.Sprintf("%s (as of %s)", answer, chosen.AsOf)
		p.IncludedAsOfDate = true
	}

	p.RawAnswer = answer
	p.PreferredOfficialSource = chosen.Official
	p.EvidenceIDsUsed = []string{chosen.ID}
	p.FlaggedConflict = sourcesDisagree(evidence)
	return p, nil
}

// preferredEvidence returns the first official item, else the first item.
func preferredEvidence(evidence []dataset.Evidence) dataset.Evidence {
	for _, ev := range evidence {
		if ev.Official {
			return ev
		}
	}
	return evidence[0]
}

// sourcesDisagree reports whether two distinct sources carry different text.
func sourcesDisagree(evidence []dataset.Evidence) bool {
	textBySource := make(map[string]string)
	for _, ev := range evidence {
		src := strings.ToLower(strings.TrimSpace(ev.Source))
		txt := strings.Join(strings.Fields(strings.ToLower(ev.Text)), " ")
		if _, ok := textBySource[src]; !ok {
			textBySource[src] = txt
		}
	}
	if len(textBySource) < 2 {
		return false
	}
	var first string
	seen := false
	for _, txt := range textBySource {
		if !seen {
			first, seen = txt, true
			continue
		}
		if txt != first {
			return true
		}
	}
	return false
}
