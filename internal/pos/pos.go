// Package pos holds position arithmetic for homepage section ordering.
package pos

// Sentinel is the transient holding position used while two sections swap
// places. It is never a valid display position and must be hidden from
// every listing.
const Sentinel = -1

// Valid reports whether p is a displayable position (1-based).
func Valid(p int64) bool {
	return p >= 1
}

// Next returns the position assigned to a newly added section given the
// current maximum. Positions count up from the historical maximum, not
// from the section count, so gaps left by deletes are not reused.
func Next(max int64) int64 {
	if max < 1 {
		return 1
	}
	return max + 1
}

// Max returns the largest valid position in ps, or 0 when none exists.
// Sentinel-positioned entries do not count.
func Max(ps []int64) int64 {
	var max int64
	for _, p := range ps {
		if Valid(p) && p > max {
			max = p
		}
	}
	return max
}
