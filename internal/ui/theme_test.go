package ui

import (
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		value, total float64
		width        int
		want         string
	}{
		{0, 98, 10, "[----------]"},
		{49, 98, 10, "[#####-----]"},
		{98, 98, 10, "[##########]"},
		{150, 98, 4, "[####]"},
		{-5, 98, 4, "[----]"},
		{1, 0, 1, "[###]"},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.value, tt.total, tt.width); got != tt.want {
			t.Errorf("ProgressBar(%v, %v, %d) = %q, want %q", tt.value, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestHeadingAndLabel(t *testing.T) {
	if h := Heading(IconSparkle, "Stats"); !strings.Contains(h, "Stats") {
		t.Errorf("Heading = %q", h)
	}
	if lv := LabelValue("Coins", 30); !strings.Contains(lv, "Coins:") || !strings.Contains(lv, "30") {
		t.Errorf("LabelValue = %q", lv)
	}
}

func TestHealthTextKeepsValue(t *testing.T) {
	tests := []struct {
		health float64
		want   string
	}{
		{0, "0.0"},
		{12.3, "12.3"},
		{50, "50.0"},
		{90, "90.0"},
	}
	for _, tt := range tests {
		if got := HealthText(tt.health, 98); !strings.Contains(got, tt.want) {
			t.Errorf("HealthText(%v) = %q, want it to contain %q", tt.health, got, tt.want)
		}
	}
}
