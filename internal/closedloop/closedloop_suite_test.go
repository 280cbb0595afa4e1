package closedloop_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestClosedLoop(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Closed Loop Suite")
}
