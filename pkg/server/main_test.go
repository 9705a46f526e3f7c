package server

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if any test leaves a session or server
// goroutine running.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
