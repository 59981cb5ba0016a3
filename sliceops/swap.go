package sliceops

// SwapBuf returns a reversed copy of in. It converts between the little-endian
// order used on air and the big-endian order used in text.
func SwapBuf(in []byte) []byte {
	a := make([]byte, 0, len(in))
	a = append(a, in...)
	for i := len(a)/2 - 1; i >= 0; i-- {
		opp := len(a) - 1 - i
		a[i], a[opp] = a[opp], a[i]
	}

	return a
}

// Clone returns a copy of in that never aliases it. A nil or empty input
// yields an empty, non-nil slice.
func Clone(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
