package classifier

import (
	"testing"

	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := New()

	tests := []struct {
		name     string
		category string
		expected string
	}{
		{name: "Police dispatches", category: "Police", expected: "Dispatch"},
		{name: "Fire", category: "Fire", expected: "Fire"},
		{name: "Medical", category: "Medical", expected: "Medical"},
		{name: "EMS is medical", category: "EMS", expected: "Medical"},
		{name: "Weather", category: "Weather", expected: "Weather"},
		{name: "Lower case category", category: "fire", expected: "Fire"},
		{name: "Unmapped category", category: "Aviation", expected: "Dispatch"},
		{name: "Empty category", category: "", expected: "Dispatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(models.Feed{Category: tt.category})
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestCallType_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if CallType(" EMS ") != CallMedical {
			t.Fatalf("Expected %s on call %d", CallMedical, i)
		}
	}
}
