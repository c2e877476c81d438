package channel_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/darragh-downey/goo-messaging/channel"
	"github.com/darragh-downey/goo-messaging/msg"
)

var _ = Describe("Pub/Sub", func() {
	It("delivers published messages only to matching local subscribers (S2)", func() {
		pub := channel.Create(channel.Pub, 0, 4, channel.Buffered)
		defer pub.Destroy()

		weather := channel.Create(channel.Sub, 0, 4, channel.Buffered)
		defer weather.Destroy()
		Expect(weather.Subscribe("weather", nil)).To(Succeed())

		sports := channel.Create(channel.Sub, 0, 4, channel.Buffered)
		defer sports.Destroy()
		Expect(sports.Subscribe("sports", nil)).To(Succeed())

		pub.AddSubscriber(weather)
		pub.AddSubscriber(sports)

		Expect(pub.Publish("weather", []byte("sunny"), 0)).To(Succeed())

		b, err := weather.Receive(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("sunny"))

		_, err = sports.Receive(msg.NonBlock)
		Expect(err).To(HaveOccurred())
	})
})
