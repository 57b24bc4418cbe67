package model

import "testing"

func TestIsEnabled_NilMeansEnabled(t *testing.T) {
	el := Element{Kind: KindButton}
	if !el.IsEnabled() {
		t.Error("expected nil Enabled flag to be treated as enabled")
	}
}

func TestIsEnabled_ExplicitFalse(t *testing.T) {
	f := false
	el := Element{Kind: KindButton, Enabled: &f}
	if el.IsEnabled() {
		t.Error("expected Enabled=false to report disabled")
	}
}

func TestClickable(t *testing.T) {
	f := false
	cases := []struct {
		name string
		el   Element
		want bool
	}{
		{"enabled with bounds", Element{Bounds: [4]int{0, 0, 10, 10}}, true},
		{"disabled", Element{Bounds: [4]int{0, 0, 10, 10}, Enabled: &f}, false},
		{"offscreen", Element{Bounds: [4]int{0, 0, 10, 10}, Offscreen: true}, false},
		{"zero size", Element{Bounds: [4]int{5, 5, 0, 0}}, false},
	}
	for _, tc := range cases {
		if got := tc.el.Clickable(); got != tc.want {
			t.Errorf("%s: Clickable() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeKind(t *testing.T) {
	if NormalizeKind("Button") != KindButton {
		t.Error("expected Button to normalize to btn")
	}
	if NormalizeKind("SomeCustomControl") != KindOther {
		t.Error("expected unknown class to normalize to other")
	}
}
