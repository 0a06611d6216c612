// Package classify derives a client's customer-success classification
// from its quality label. The functions here are pure; persisting the
// result is the engine's job.
package classify

import (
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

// Outcome is the result of evaluating a label change.
type Outcome struct {
	// Changed is false when the label carries no signal (empty label);
	// the caller must leave the stored classification untouched.
	Changed        bool
	Classification domain.Classification
	Reason         *string
	// Reset reports that any alert/critical state is cleared.
	Reset bool
}

const (
	reasonMedio = "label changed to Médio"
	reasonRuim  = "label changed to Ruim"
)

// Classify maps a label transition to a classification outcome.
// Rules are ordered, first match wins. A positive label always resets
// to normal regardless of the previous label.
func Classify(label, previous domain.Label) Outcome {
	switch label {
	case domain.LabelMedio:
		r := reasonMedio
		return Outcome{Changed: true, Classification: domain.ClassAlerta, Reason: &r}
	case domain.LabelRuim:
		r := reasonRuim
		return Outcome{Changed: true, Classification: domain.ClassCritico, Reason: &r}
	case domain.LabelOtimo, domain.LabelBom:
		return Outcome{Changed: true, Classification: domain.ClassNormal, Reset: true}
	default:
		return Outcome{}
	}
}

// Bucket folds a raw label token into one of the four reporting buckets.
// Legacy tokens (and anything unrecognized) land in medio; see the
// legacy_labels config section for explicit overrides.
func Bucket(raw string, legacy map[string]string) domain.Label {
	if raw == "" {
		return domain.LabelNone
	}
	switch domain.Label(raw) {
	case domain.LabelOtimo, domain.LabelBom, domain.LabelMedio, domain.LabelRuim:
		return domain.Label(raw)
	}
	if mapped, ok := legacy[raw]; ok {
		return domain.Label(mapped)
	}
	return domain.LabelMedio
}
