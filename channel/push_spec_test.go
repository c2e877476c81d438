package channel_test

import (
	"net"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/darragh-downey/goo-messaging/channel"
	"github.com/darragh-downey/goo-messaging/transport"
)

var _ = Describe("Push/Pull", func() {
	It("round-robins across connected endpoints (S5)", func() {
		var mu sync.Mutex
		counts := map[string]int{}
		newServer := func(addr string) *transport.Endpoint {
			ep, err := transport.Listen(addr, transport.Options{}, func(data []byte, _ net.Addr) {
				mu.Lock()
				counts[addr]++
				mu.Unlock()
			})
			Expect(err).NotTo(HaveOccurred())
			return ep
		}

		s1 := newServer("tcp://127.0.0.1:18551")
		defer s1.Close()
		s2 := newServer("tcp://127.0.0.1:18552")
		defer s2.Close()

		push := channel.Create(channel.Push, 0, 4, channel.Buffered)
		defer push.Destroy()
		Expect(push.Connect("tcp://127.0.0.1:18551", transport.Options{})).To(Succeed())
		Expect(push.Connect("tcp://127.0.0.1:18552", transport.Options{})).To(Succeed())

		for i := 0; i < 4; i++ {
			Expect(push.PushSend([]byte("x"), 0, 1)).To(Succeed())
		}

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return counts["tcp://127.0.0.1:18551"] + counts["tcp://127.0.0.1:18552"]
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(4))

		mu.Lock()
		defer mu.Unlock()
		Expect(counts["tcp://127.0.0.1:18551"]).To(Equal(2))
		Expect(counts["tcp://127.0.0.1:18552"]).To(Equal(2))
	})
})
