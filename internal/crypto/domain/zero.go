package domain

// Zero overwrites b in place. Unwrapped key material and derived sub-keys are
// zeroed before they go out of scope so plaintext keys do not linger on the
// heap. A nil slice is a no-op.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
