package draft

import "testing"

func TestCleanPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"25 bin", 25_000, true},
		{"22 bin", 22_000, true},
		{"2.5M", 2_500_000, true},
		{"2,5 milyon", 2_500_000, true},
		{"1,5 milyon", 1_500_000, true},
		{"otuz beş bin", 35_000, true},
		{"otuz bes bin", 35_000, true},
		{"54,999 TL", 54_999, true},
		{"54.999 TL", 54_999, true},
		{"45.000", 45_000, true},
		{"500.000 TL", 500_000, true},
		{"27000", 27_000, true},
		{"750k", 750_000, true},
		{"yüz elli bin", 150_000, true},
		{"", 0, false},
		{"bedava", 0, false},
		{"fiyat yok", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := CleanPrice(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("CleanPrice(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
