package domain

// Zero overwrites a byte slice in place. Used to clear root keys and derived
// subkeys once they leave scope; callers must not reuse the slice afterwards.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
