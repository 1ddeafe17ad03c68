package e2e_test

import (
	"os"
	"testing"

	"github.com/glizzus/radio-relay/e2e"
)

func TestMain(m *testing.M) {
	code := m.Run()
	e2e.TerminatePostgresForE2E()
	os.Exit(code)
}
