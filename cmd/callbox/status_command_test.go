package main

import (
	"reflect"
	"testing"
)

func TestStatusOrderFollowsLifecycle(t *testing.T) {
	counts := map[string]int{
		"completed":   1,
		"uploaded":    2,
		"failed":      0,
		"normalizing": 0,
	}

	got := statusOrder(counts)
	want := []string{"uploaded", "normalizing", "completed", "failed"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestStatusOrderAppendsUnknownKeys(t *testing.T) {
	counts := map[string]int{
		"uploaded":  1,
		"archived":  2,
		"abandoned": 3,
	}

	got := statusOrder(counts)
	want := []string{"uploaded", "abandoned", "archived"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
