package sales

import "testing"

func TestNextPaymentStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   PaymentStatus
		remaining float64
		want      PaymentStatus
		wantErr   bool
	}{
		{"unpaid with balance left", StatusUnpaid, 20000, StatusPartial, false},
		{"unpaid settled in one go", StatusUnpaid, 0, StatusPaid, false},
		{"partial stays partial", StatusPartial, 500, StatusPartial, false},
		{"partial settled", StatusPartial, 0, StatusPaid, false},
		{"written off cannot take payments", StatusWrittenOff, 0, "", true},
		{"written off cannot go partial", StatusWrittenOff, 100, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextPaymentStatus(tt.current, tt.remaining)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("nextPaymentStatus(%s, %v) = %s, want error", tt.current, tt.remaining, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("nextPaymentStatus(%s, %v): %v", tt.current, tt.remaining, err)
			}
			if got != tt.want {
				t.Errorf("nextPaymentStatus(%s, %v) = %s, want %s", tt.current, tt.remaining, got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		current PaymentStatus
		next    PaymentStatus
		want    bool
	}{
		{"unpaid to partial", StatusUnpaid, StatusPartial, true},
		{"unpaid to paid", StatusUnpaid, StatusPaid, true},
		{"unpaid to written off", StatusUnpaid, StatusWrittenOff, true},
		{"partial to paid", StatusPartial, StatusPaid, true},
		{"partial to written off", StatusPartial, StatusWrittenOff, true},
		{"paid is terminal", StatusPaid, StatusWrittenOff, false},
		{"paid cannot regress", StatusPaid, StatusPartial, false},
		{"written off is terminal", StatusWrittenOff, StatusPaid, false},
		{"written off cannot repeat", StatusWrittenOff, StatusWrittenOff, false},
		{"partial cannot regress", StatusPartial, StatusUnpaid, false},
		{"unknown status has no transitions", PaymentStatus("HELD"), StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.current, tt.next); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.current, tt.next, got, tt.want)
			}
		})
	}
}
