package gpio

import "testing"

func TestScaleADS1115(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"zero", 0, 0},
		{"negative noise", -12, 0},
		{"supply rail", 26400, 1023},
		{"above supply", 32767, 1023},
		{"half supply", 13200, 512},
		// 1.289V, the stock full-reservoir reading.
		{"full reservoir", 10313, 399},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleADS1115(tt.count); got != tt.want {
				t.Errorf("ScaleADS1115(%d): got %d, want %d", tt.count, got, tt.want)
			}
		})
	}
}
