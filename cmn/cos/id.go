package cos

import (
	"sync"

	"github.com/teris-io/shortid"
)

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
)

func initShortID() {
	s, err := shortid.New(1, shortid.DefaultABC, 1)
	if err != nil {
		// shortid.New only fails on a malformed alphabet; DefaultABC is
		// never malformed.
		panic(err)
	}
	sid = s
}

// GenID returns a short collision-resistant identifier, used for message
// correlation UIDs.
func GenID() string {
	sidOnce.Do(initShortID)
	return sid.MustGenerate()
}
