package utils

import "testing"

// TestNextPowerOfTwo tests the NextPowerOfTwo function
func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 8},
		{64, 64},
		{65, 128},
		{1000, 1024},
	}

	for _, tt := range tests {
		if got := NextPowerOfTwo(tt.input); got != tt.expected {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

// TestLog2 tests the Log2 function
func TestLog2(t *testing.T) {
	if got := Log2(1024); got != 10 {
		t.Errorf("Log2(1024) = %d, want 10", got)
	}
	if got := Log2(6); got != -1 {
		t.Errorf("Log2(6) = %d, want -1", got)
	}
}

// TestLimbs tests the u32 and 16-bit splitting helpers
func TestLimbs(t *testing.T) {
	hi, lo := SplitU32(0x0000_0005_0000_0007)
	if hi != 5 || lo != 7 {
		t.Errorf("SplitU32 = (%d, %d), want (5, 7)", hi, lo)
	}
	l, h := Limbs16(0x1234_abcd)
	if l != 0xabcd || h != 0x1234 {
		t.Errorf("Limbs16 = (%#x, %#x), want (0xabcd, 0x1234)", l, h)
	}
}
