// Package utils holds execution options, the challenge transcript and
// small integer helpers.
package utils

// IsPowerOfTwo checks if a number is a power of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 computes the base-2 logarithm of a power of 2
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}

	result := 0
	for n > 1 {
		n >>= 1
		result++
	}
	return result
}

// NextPowerOfTwo returns the smallest power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// SplitU32 returns the high and low 32-bit halves of v
func SplitU32(v uint64) (hi, lo uint64) {
	return v >> 32, v & 0xffffffff
}

// Limbs16 splits a 32-bit value into its low and high 16-bit limbs
func Limbs16(v uint64) (lo, hi uint64) {
	return v & 0xffff, (v >> 16) & 0xffff
}
