package catalog

import (
	"encoding/json"
	"testing"
)

func TestCleanCost(t *testing.T) {
	tests := []struct {
		name          string
		purchasePrice float64
		details       *CostDetails
		want          float64
	}{
		{
			name:          "zero purchase price returns zero even with details",
			purchasePrice: 0,
			details:       &CostDetails{Items: []CostItem{{Amount: 500}}},
			want:          0,
		},
		{
			name:          "nil details returns purchase price unchanged",
			purchasePrice: 10000,
			details:       nil,
			want:          10000,
		},
		{
			name:          "empty item list returns purchase price unchanged",
			purchasePrice: 10000,
			details:       &CostDetails{},
			want:          10000,
		},
		{
			name:          "itemized costs are added",
			purchasePrice: 10000,
			details: &CostDetails{Items: []CostItem{
				{Label: "freight", Amount: 500},
				{Label: "packaging", Amount: 200},
			}},
			want: 10700,
		},
		{
			name:          "safety margin is excluded",
			purchasePrice: 10000,
			details: &CostDetails{
				Items:        []CostItem{{Amount: 500}},
				SafetyMargin: 1500,
			},
			want: 10500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCost(tt.purchasePrice, tt.details)
			if got != tt.want {
				t.Errorf("CleanCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCleanCostTolerantAmounts(t *testing.T) {
	// Amounts arrive as raw JSON from the dashboard; strings that do not
	// parse as numbers must count as zero instead of failing the decode.
	raw := `{"costs":[{"amount":500},{"amount":"abc"}]}`
	var details CostDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		t.Fatalf("unmarshal cost details: %v", err)
	}

	got := CleanCost(10000, &details)
	if got != 10500 {
		t.Errorf("CleanCost() = %v, want 10500", got)
	}
}

func TestCostAmountUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want CostAmount
	}{
		{"number", `125.5`, 125.5},
		{"numeric string", `"300"`, 300},
		{"padded numeric string", `" 42 "`, 42},
		{"garbage string", `"abc"`, 0},
		{"object", `{"v":1}`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a CostAmount
			if err := json.Unmarshal([]byte(tt.raw), &a); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if a != tt.want {
				t.Errorf("got %v, want %v", a, tt.want)
			}
		})
	}
}
