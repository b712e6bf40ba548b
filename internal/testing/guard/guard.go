// Package guard forces test mode on as soon as it is imported. Blank-import
// it from test packages that must never touch real infrastructure.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SKILLATLAS_TEST_MODE") == "" {
			_ = os.Setenv("SKILLATLAS_TEST_MODE", "1")
		}
	})
}
