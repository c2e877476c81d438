package channel_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/darragh-downey/goo-messaging/channel"
	"github.com/darragh-downey/goo-messaging/cmn/cos"
	"github.com/darragh-downey/goo-messaging/transport"
)

var _ = Describe("Req/Rep", func() {
	It("correlates one request to one reply over tcp (S4)", func() {
		rep := channel.Create(channel.Rep, 0, 4, channel.Buffered)
		defer rep.Destroy()
		Expect(rep.Bind("tcp://127.0.0.1:18661", transport.Options{})).To(Succeed())

		go func() {
			req, err := rep.ReceiveRequest(0)
			if err != nil {
				return
			}
			_ = rep.Reply(append([]byte("echo:"), req.Payload()...), 0)
		}()

		req := channel.Create(channel.Req, 0, 4, channel.Buffered)
		defer req.Destroy()
		Expect(req.Connect("tcp://127.0.0.1:18661", transport.Options{})).To(Succeed())
		time.Sleep(20 * time.Millisecond)

		reply, err := req.Request([]byte("ping"), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(reply.Payload())).To(Equal("echo:ping"))
	})

	It("rejects a second Request while one is pending", func() {
		req := channel.Create(channel.Req, 0, 4, channel.Buffered)
		defer req.Destroy()
		req.SetTimeout(10 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			_, _ = req.Request([]byte("x"), 0)
			close(done)
		}()
		time.Sleep(5 * time.Millisecond)
		Expect(req.HasPendingRequest()).To(BeTrue())
		_, err := req.Request([]byte("y"), 0)
		Expect(err).To(MatchError(cos.ErrProtocolViolation))
		<-done
	})
})
