package wire

import "testing"

func TestFixed(t *testing.T) {
	tests := []struct {
		in    float64
		int   int
		float float64
	}{
		{in: 0, int: 0, float: 0},
		{in: 1.5, int: 1, float: 1.5},
		{in: -1.5, int: -2, float: -1.5},
		{in: 100.25, int: 100, float: 100.25},
	}

	for _, test := range tests {
		f := FixedFloat(test.in)
		if f.Int() != test.int {
			t.Errorf("%v: int: %v", test.in, f.Int())
		}
		if f.Float() != test.float {
			t.Errorf("%v: float: %v", test.in, f.Float())
		}
	}

	if FixedInt(3).Float() != 3 {
		t.Errorf("FixedInt(3) = %v", FixedInt(3))
	}
}
