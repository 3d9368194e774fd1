package records

import (
	"reflect"
	"testing"
)

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"  Billing  ": "billing",
		"ESCALATION":  "escalation",
		"Straße":      "strasse",
		"":            "",
		"   ":         "",
	}
	for input, want := range cases {
		if got := NormalizeTag(input); got != want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"Billing", "billing", " REFUND ", "", "refund"})
	want := []string{"billing", "refund"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
}

func TestHasTag(t *testing.T) {
	tags := []string{"billing", "refund"}
	if !HasTag(tags, "BILLING") {
		t.Error("expected case-insensitive match")
	}
	if HasTag(tags, "bill") {
		t.Error("partial tag should not match")
	}
}

func TestMergeTags(t *testing.T) {
	got := MergeTags([]string{"billing"}, "Billing", "refund")
	want := []string{"billing", "refund"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeTags = %v, want %v", got, want)
	}
}

func TestRemoveTag(t *testing.T) {
	tags, removed := RemoveTag([]string{"billing", "refund"}, "REFUND")
	if !removed {
		t.Fatal("expected removal")
	}
	if !reflect.DeepEqual(tags, []string{"billing"}) {
		t.Fatalf("tags = %v", tags)
	}

	same, removed := RemoveTag(tags, "missing")
	if removed {
		t.Fatal("unexpected removal")
	}
	if !reflect.DeepEqual(same, []string{"billing"}) {
		t.Fatalf("tags = %v", same)
	}
}
