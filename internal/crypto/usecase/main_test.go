package usecase

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies no background re-encryption goroutine outlives its test.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
