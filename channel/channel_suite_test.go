package channel_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"
)

func TestChannel(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("time.Sleep"),
	)
	RegisterFailHandler(Fail)
	RunSpecs(t, "channel suite")
}
