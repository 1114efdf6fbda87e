package service

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// deterministicEncrypt encrypts plaintext with AES-256-CTR using a synthetic
// IV derived from the plaintext itself, so identical plaintext under the same
// sub-key always produces identical ciphertext. This is what allows equality
// lookups on encrypted columns, at the cost of leaking repetition patterns.
//
// Deterministic mode carries no authentication tag: the envelope's tag segment
// is left empty and tampering surfaces as garbage plaintext upstream, not as a
// verification failure. The registry restricts this mode to fields that need
// searchability.
func deterministicEncrypt(subKey, plaintext []byte) (iv, ciphertext []byte, err error) {
	block, err := aes.NewCipher(subKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	iv = deterministicIV(subKey, plaintext)
	ciphertext = make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, plaintext)
	return iv, ciphertext, nil
}

// deterministicDecrypt reverses deterministicEncrypt with the stored IV.
func deterministicDecrypt(subKey, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(subKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("invalid iv length %d", len(iv))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}
