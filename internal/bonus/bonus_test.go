package bonus

import "testing"

func TestMaxRedeemable(t *testing.T) {
	tests := []struct {
		name      string
		available int64
		price     int64
		want      int64
	}{
		{"cap at 90 percent of price", 1000, 500, 450},
		{"cap at available balance", 100, 500, 100},
		{"zero balance", 0, 500, 0},
		{"zero price", 1000, 0, 0},
		{"negative balance treated as zero", -5, 500, 0},
		{"rounding down", 1000, 99, 89},
		{"kopecks scale", 100000, 50000, 45000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxRedeemable(tt.available, tt.price); got != tt.want {
				t.Fatalf("MaxRedeemable(%d, %d) = %d, want %d", tt.available, tt.price, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		requested int64
		max       int64
		want      int64
	}{
		{"within range", 200, 450, 200},
		{"above max clamped down", 9999, 450, 450},
		{"below zero clamped up", -10, 450, 0},
		{"exactly max", 450, 450, 450},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.requested, tt.max); got != tt.want {
				t.Fatalf("Clamp(%d, %d) = %d, want %d", tt.requested, tt.max, got, tt.want)
			}
		})
	}
}

func TestNewQuote_PayableNeverNegative(t *testing.T) {
	for requested := int64(-100); requested <= 1100; requested += 50 {
		q := NewQuote(1000, 500, requested)

		if q.Payable < 0 {
			t.Fatalf("payable = %d for requested %d, must not be negative", q.Payable, requested)
		}
		if q.Payable != q.Price-q.Applied {
			t.Fatalf("payable = %d, want price-applied = %d", q.Payable, q.Price-q.Applied)
		}
		// При достаточном остатке бонусов к оплате остаётся не меньше 10% цены.
		if q.Payable < q.Price/10 {
			t.Fatalf("payable = %d for requested %d, want at least %d", q.Payable, requested, q.Price/10)
		}
	}
}

func TestNewQuote_RecomputedOnPriceChange(t *testing.T) {
	q := NewQuote(1000, 500, 450)
	if q.Applied != 450 || q.Payable != 50 {
		t.Fatalf("quote = %+v, want applied 450 payable 50", q)
	}

	// Та же запрошенная сумма при меньшей цене заново обрезается по новому максимуму.
	q = NewQuote(1000, 200, 450)
	if q.Applied != 180 || q.Payable != 20 {
		t.Fatalf("quote = %+v, want applied 180 payable 20", q)
	}
}
