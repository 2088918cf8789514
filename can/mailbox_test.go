package can

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

var _ = Describe("Mailbox", func() {
	It("should reject invalid ids", func() {
		_, err := NewMailbox(0x1FC00001)
		Expect(err).To(MatchError(sim.ErrInvalidArgument))
		Expect(func() { MustNewMailbox(0x3FFFFFFF) }).To(Panic())
	})

	It("should use the message id as channel type", func() {
		m := MustNewMailbox(0x1F0000FF)
		Expect(m.Meta().Channel).To(Equal(network.Channel{Type: 0x1F0000FF}))
		Expect(m.Meta().HasTimestamp()).To(BeFalse())
	})

	It("should compute the wire size", func() {
		m := MustNewMailbox(0x1F000000)
		Expect(m.BitSize()).To(Equal(73))

		Expect(m.SetData(0x01, 1)).To(Succeed())
		Expect(m.BitSize()).To(Equal(82))

		Expect(m.SetData(0x01, 8)).To(Succeed())
		Expect(m.BitSize()).To(Equal(148))
		Expect(m.Frame().CRC).To(Equal(uint16(25015)))
	})

	It("should reject invalid payloads", func() {
		m := MustNewMailbox(0x1F000000)
		Expect(m.SetData(0, 9)).To(MatchError(sim.ErrInvalidArgument))
		Expect(m.SetData(0x10000, 2)).To(MatchError(sim.ErrInvalidArgument))
		Expect(m.SetBytes(make([]byte, 10))).
			To(MatchError(sim.ErrInvalidArgument))
		Expect(m.Size()).To(BeZero())
	})

	It("should round trip bytes", func() {
		m := MustNewMailbox(0x1F000000)
		Expect(m.SetBytes([]byte{0x01, 0x02, 0x03})).To(Succeed())
		Expect(m.Data()).To(Equal(uint64(0x030201)))
		Expect(m.Bytes()).To(Equal([]byte{0x01, 0x02, 0x03}))
		Expect(m.String()).To(Equal("ID=1f000000; Payload=0x030201"))
	})

	It("should clone with a new ID", func() {
		m := MustNewMailbox(0x1F000000)
		Expect(m.SetData(0xAB, 1)).To(Succeed())

		clone := m.Clone().(*Mailbox)
		Expect(clone.Meta().ID).ToNot(Equal(m.Meta().ID))
		Expect(clone.Data()).To(Equal(uint64(0xAB)))

		Expect(m.SetData(0xCD, 1)).To(Succeed())
		Expect(clone.Data()).To(Equal(uint64(0xAB)))
	})

	It("should only copy from the same message id", func() {
		a := MustNewMailbox(0x1F000000)
		b := MustNewMailbox(0x1F000001)
		Expect(b.CopyFrom(a)).To(MatchError(sim.ErrInvalidArgument))
		Expect(b.CopyFrom(network.NewPing("p", network.Channel{}, 1))).
			To(MatchError(sim.ErrInvalidArgument))

		c := MustNewMailbox(0x1F000000)
		Expect(a.SetData(0x5A, 1)).To(Succeed())
		a.SetLastDropped(true)
		a.Timestamp = 5

		Expect(c.CopyFrom(a)).To(Succeed())
		Expect(c.Data()).To(Equal(uint64(0x5A)))
		Expect(c.Size()).To(Equal(1))
		Expect(c.LastDropped()).To(BeTrue())
		Expect(c.Timestamp).To(Equal(sim.VTime(5)))
	})
})

var _ = Describe("Translators", func() {
	It("should store integers in the low 32 bits", func() {
		m := MustNewMailbox(0x1F0000FF)
		t := NewIntegerTranslator(m)
		Expect(m.Size()).To(Equal(4))

		t.SetValue(-5)
		Expect(t.Value()).To(Equal(int32(-5)))
		Expect(m.Data()).To(Equal(uint64(0xFFFFFFFB)))
		Expect(m.String()).To(Equal("ID=1f0000ff; Payload=-0x5"))

		t.SetValue(0x0F0F0F0)
		Expect(m.BitSize()).To(Equal(105))
	})

	It("should store booleans in bit 31", func() {
		m := MustNewMailbox(0x1F000011)
		t := NewBooleanTranslator(m)

		t.SetValue(true)
		Expect(t.Value()).To(BeTrue())
		Expect(m.Data()).To(Equal(uint64(1 << 31)))
		Expect(m.String()).To(Equal("ID=1f000011; Payload=true"))

		t.SetValue(false)
		Expect(t.Value()).To(BeFalse())
	})

	It("should keep the format on clones", func() {
		m := MustNewMailbox(0x1F000010)
		NewIntegerTranslator(m).SetValue(16)

		Expect(m.Clone().(*Mailbox).String()).
			To(Equal("ID=1f000010; Payload=0x10"))
	})
})
