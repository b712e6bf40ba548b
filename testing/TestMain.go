package testing

import (
	"os"
	stdtesting "testing"

	_ "github.com/skillatlas/skillatlas/internal/testing/guard"
)

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
