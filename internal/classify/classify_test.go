package classify_test

import (
	"testing"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/classify"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
)

func TestClassifyMedioRaisesAlerta(t *testing.T) {
	out := classify.Classify(domain.LabelMedio, domain.LabelNone)
	if !out.Changed || out.Classification != domain.ClassAlerta {
		t.Fatalf("expected alerta, got %+v", out)
	}
	if out.Reason == nil || *out.Reason != "label changed to Médio" {
		t.Fatalf("unexpected reason %v", out.Reason)
	}
}

func TestClassifyRuimRaisesCritico(t *testing.T) {
	out := classify.Classify(domain.LabelRuim, domain.LabelBom)
	if !out.Changed || out.Classification != domain.ClassCritico {
		t.Fatalf("expected critico, got %+v", out)
	}
	if out.Reason == nil || *out.Reason != "label changed to Ruim" {
		t.Fatalf("unexpected reason %v", out.Reason)
	}
}

func TestClassifyPositiveLabelResets(t *testing.T) {
	for _, label := range []domain.Label{domain.LabelOtimo, domain.LabelBom} {
		out := classify.Classify(label, domain.LabelRuim)
		if !out.Changed || out.Classification != domain.ClassNormal || !out.Reset {
			t.Fatalf("label %s: expected normal reset, got %+v", label, out)
		}
		if out.Reason != nil {
			t.Fatalf("label %s: reset should carry no reason, got %q", label, *out.Reason)
		}
	}
}

func TestClassifyEmptyLabelIsNoOp(t *testing.T) {
	out := classify.Classify(domain.LabelNone, domain.LabelRuim)
	if out.Changed {
		t.Fatalf("empty label must not change classification, got %+v", out)
	}
}

func TestBucketLegacyTokens(t *testing.T) {
	legacy := map[string]string{"green": "otimo", "red": "ruim"}
	cases := []struct {
		raw  string
		want domain.Label
	}{
		{"otimo", domain.LabelOtimo},
		{"green", domain.LabelOtimo},
		{"red", domain.LabelRuim},
		{"purple", domain.LabelMedio}, // unknown legacy token
		{"", domain.LabelNone},
	}
	for _, tc := range cases {
		if got := classify.Bucket(tc.raw, legacy); got != tc.want {
			t.Fatalf("bucket(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
