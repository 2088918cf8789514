package can

import (
	"fmt"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// A Translator gives meaning to the bytes of a mailbox.
type Translator interface {
	// ByteSize returns the payload size the translator expects.
	ByteSize() int

	// Format renders the payload of m.
	Format(m *Mailbox) string
}

// A Mailbox is a CAN message. Its channel type is the message id, so lower ids
// win the arbitration. The wire size includes the stuff bits and is cached
// until the payload changes.
type Mailbox struct {
	network.PayloadMeta

	id          uint32
	data        uint64
	size        int
	lastDropped bool
	translator  Translator

	header    BitStream
	sized     bool
	sizedData uint64
	sizedSize int
	frame     Frame
}

// NewMailbox creates an empty mailbox for the message id.
func NewMailbox(id uint32) (*Mailbox, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	m := &Mailbox{
		PayloadMeta: network.NewPayloadMeta(
			fmt.Sprintf("CAN%#x", id),
			network.Channel{Type: int(id)},
		),
		id:     id,
		header: headerStream(id),
	}

	return m, nil
}

// MustNewMailbox is like NewMailbox but panics on an invalid id. It is meant
// for ids that are constants of the program.
func MustNewMailbox(id uint32) *Mailbox {
	m, err := NewMailbox(id)
	if err != nil {
		panic(err)
	}

	return m
}

// Meta returns the meta data of the mailbox.
func (m *Mailbox) Meta() *network.PayloadMeta {
	return &m.PayloadMeta
}

// MessageID returns the CAN id.
func (m *Mailbox) MessageID() uint32 {
	return m.id
}

// Data returns the payload bits. Bit i is payload bit i.
func (m *Mailbox) Data() uint64 {
	return m.data
}

// Bytes returns the payload as bytes, bits 0 to 7 first.
func (m *Mailbox) Bytes() []byte {
	return unpackBytes(m.data, m.size)
}

// Size returns the payload size in bytes.
func (m *Mailbox) Size() int {
	return m.size
}

// SetData replaces the payload.
func (m *Mailbox) SetData(bits uint64, size int) error {
	if err := validateData(bits, size); err != nil {
		return err
	}

	m.data = bits
	m.size = size

	return nil
}

// SetBytes replaces the payload, data[0] holding bits 0 to 7.
func (m *Mailbox) SetBytes(data []byte) error {
	if len(data) > MaxDataSize {
		return fmt.Errorf("%w: can: %d bytes of data",
			sim.ErrInvalidArgument, len(data))
	}

	return m.SetData(packBytes(data), len(data))
}

// Frame returns the encoding of the current payload.
func (m *Mailbox) Frame() Frame {
	if !m.sized || m.sizedData != m.data || m.sizedSize != m.size {
		m.frame = encodeWithHeader(m.header, m.id, m.data, m.size)
		m.sized = true
		m.sizedData = m.data
		m.sizedSize = m.size
	}

	return m.frame
}

// BitSize returns the number of bits the mailbox occupies on the wire.
func (m *Mailbox) BitSize() int {
	return m.Frame().Bits()
}

// LastDropped tells if the last transmission of the content was dropped by a
// fault model.
func (m *Mailbox) LastDropped() bool {
	return m.lastDropped
}

// SetLastDropped records the fate of the last transmission.
func (m *Mailbox) SetLastDropped(dropped bool) {
	m.lastDropped = dropped
}

// Translator returns the translator attached to the mailbox, if any.
func (m *Mailbox) Translator() Translator {
	return m.translator
}

// SetTranslator attaches a translator. The payload size becomes the size the
// translator expects.
func (m *Mailbox) SetTranslator(t Translator) {
	m.translator = t
	m.size = t.ByteSize()
	m.data &= sizeMask(m.size)
}

// Clone returns a copy of the mailbox with a different ID.
func (m *Mailbox) Clone() network.Payload {
	clone := *m
	clone.ID = sim.GetIDGenerator().Generate()

	return &clone
}

// CopyFrom copies the payload of another mailbox with the same message id.
func (m *Mailbox) CopyFrom(src network.Payload) error {
	other, ok := src.(*Mailbox)
	if !ok {
		return fmt.Errorf("%w: cannot copy %T into a CAN mailbox",
			sim.ErrInvalidArgument, src)
	}

	if other.id != m.id {
		return fmt.Errorf("%w: cannot copy CAN message %#x into %#x",
			sim.ErrInvalidArgument, other.id, m.id)
	}

	m.PayloadMeta.ID = other.PayloadMeta.ID
	m.Timestamp = other.Timestamp
	m.data = other.data
	m.size = other.size
	m.lastDropped = other.lastDropped

	return nil
}

func (m *Mailbox) String() string {
	if m.translator != nil {
		return fmt.Sprintf("ID=%x; Payload=%s", m.id, m.translator.Format(m))
	}

	return fmt.Sprintf("ID=%x; Payload=%s", m.id, hexPayload(m.data, m.size))
}

func hexPayload(v uint64, size int) string {
	if size == 0 {
		return "0x"
	}

	return fmt.Sprintf("0x%0*x", size*2, v)
}

func sizeMask(size int) uint64 {
	if size >= MaxDataSize {
		return ^uint64(0)
	}

	return 1<<(uint(size)*8) - 1
}
