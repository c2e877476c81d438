package channel_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/darragh-downey/goo-messaging/channel"
	"github.com/darragh-downey/goo-messaging/msg"
)

var _ = Describe("Normal channel", func() {
	It("delivers sends to receives in order under blocking backpressure (S1)", func() {
		c := channel.Create(channel.Normal, 0, 2, channel.Buffered)
		defer c.Destroy()
		c.SetTimeout(100 * time.Millisecond)

		received := make(chan string, 3)
		go func() {
			for i := 0; i < 3; i++ {
				time.Sleep(50 * time.Millisecond)
				b, err := c.Receive(0)
				Expect(err).NotTo(HaveOccurred())
				received <- string(b)
			}
		}()

		for _, s := range []string{"a", "b", "c"} {
			Expect(c.Send([]byte(s), 0)).To(Succeed())
		}

		var got []string
		for i := 0; i < 3; i++ {
			got = append(got, <-received)
		}
		Expect(got).To(Equal([]string{"a", "b", "c"}))

		st := c.Stats()
		Expect(st.MessagesSent).To(BeEquivalentTo(3))
		Expect(st.MessagesReceived).To(BeEquivalentTo(3))
		Expect(st.SendErrors).To(BeEquivalentTo(0))
	})

	It("rejects a non-blocking send against a full queue (property #10)", func() {
		c := channel.Create(channel.Normal, 0, 1, channel.Buffered|channel.NonBlocking)
		defer c.Destroy()
		Expect(c.Send([]byte("x"), 0)).To(Succeed())
		err := c.Send([]byte("y"), msg.NonBlock)
		Expect(err).To(HaveOccurred())
		Expect(c.Stats().SendErrors).To(BeEquivalentTo(1))
	})

	It("hands off directly between sender and receiver on an Unbuffered channel", func() {
		c := channel.Create(channel.Normal, 0, 0, channel.Unbuffered)
		defer c.Destroy()
		c.SetTimeout(time.Second)

		received := make(chan string, 1)
		go func() {
			b, err := c.Receive(0)
			Expect(err).NotTo(HaveOccurred())
			received <- string(b)
		}()

		time.Sleep(20 * time.Millisecond)
		Expect(c.Send([]byte("direct"), 0)).To(Succeed())
		Expect(<-received).To(Equal("direct"))
	})

	It("rejects a non-blocking receive on an Unbuffered channel with no waiting sender", func() {
		c := channel.Create(channel.Normal, 0, 0, channel.Unbuffered)
		defer c.Destroy()
		_, err := c.Receive(msg.NonBlock)
		Expect(err).To(HaveOccurred())
	})

	It("drains residual messages on close then returns ClosedAndEmpty (S6)", func() {
		c := channel.Create(channel.Normal, 0, 4, channel.Buffered)
		for _, s := range []string{"a", "b", "c"} {
			Expect(c.Send([]byte(s), 0)).To(Succeed())
		}
		Expect(c.Close()).To(Succeed())

		for _, want := range []string{"a", "b", "c"} {
			b, err := c.Receive(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(b)).To(Equal(want))
		}
		_, err := c.Receive(0)
		Expect(err).To(HaveOccurred())
	})
})
