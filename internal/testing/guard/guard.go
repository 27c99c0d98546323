package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LORRYBILL_TEST_MODE") == "" {
			_ = os.Setenv("LORRYBILL_TEST_MODE", "1")
		}
	})
}
