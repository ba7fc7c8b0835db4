package utils

import (
	"log"

	"github.com/davecgh/go-spew/spew"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.SortKeys = true
}

// SDump renders values for debug logs. Map keys are sorted so two dumps of
// equal values compare equal.
func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

func LogDump(prefix string, a ...interface{}) {
	log.Printf("%s %s", prefix, spewConfig.Sdump(a...))
}
