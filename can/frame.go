package can

import (
	"fmt"

	"github.com/sarchlab/elevsim/sim"
)

const (
	// IDMask selects the 29 bits of an extended identifier.
	IDMask = 0x1FFFFFFF

	// MaxDataSize is the largest payload of a frame, in bytes.
	MaxDataSize = 8

	// FixedBits is the number of bits of a frame that do not depend on its
	// content: start bit, identifier, control bits, length field, checksum
	// and the trailing fields that are not stuffed.
	FixedBits = 66

	// At least one of these identifier bits must be dominant.
	arbitrationMask = 0x1FC00000
)

// ValidateID checks that id is a legal extended identifier.
func ValidateID(id uint32) error {
	if id&IDMask != id {
		return fmt.Errorf("%w: can: message id %#x is wider than 29 bits",
			sim.ErrInvalidArgument, id)
	}

	if ^id&arbitrationMask == 0 {
		return fmt.Errorf("%w: can: message id %#x has no dominant bit "+
			"among the 7 most significant", sim.ErrInvalidArgument, id)
	}

	return nil
}

// A Frame is the result of encoding a message.
type Frame struct {
	ID        uint32
	Size      int
	Data      uint64
	CRC       uint16
	StuffBits int
}

// Bits returns the number of bits the frame occupies on the wire.
func (f Frame) Bits() int {
	return FixedBits + 8*f.Size + f.StuffBits
}

func (f Frame) String() string {
	return fmt.Sprintf("id=%#x size=%d bits=%d stuff=%d crc=%#04x",
		f.ID, f.Size, f.Bits(), f.StuffBits, f.CRC)
}

// Encode frames data, where data[0] holds payload bits 0 to 7.
func Encode(id uint32, data []byte) (Frame, error) {
	if len(data) > MaxDataSize {
		return Frame{}, fmt.Errorf("%w: can: %d bytes of data",
			sim.ErrInvalidArgument, len(data))
	}

	return EncodeBits(id, packBytes(data), len(data))
}

// EncodeBits frames the lowest size*8 bits of bits.
func EncodeBits(id uint32, bits uint64, size int) (Frame, error) {
	if err := ValidateID(id); err != nil {
		return Frame{}, err
	}

	if err := validateData(bits, size); err != nil {
		return Frame{}, err
	}

	header := headerStream(id)

	return encodeWithHeader(header, id, bits, size), nil
}

func headerStream(id uint32) BitStream {
	var s BitStream

	s.AddBit(true)
	s.AddBits(uint64(id>>18)&0x7FF, 11)
	s.AddBit(false)
	s.AddBit(false)
	s.AddBits(uint64(id)&0x3FFFF, 18)
	s.AddBit(true)
	s.AddBit(true)
	s.AddBit(true)

	return s
}

func encodeWithHeader(header BitStream, id uint32, bits uint64, size int) Frame {
	s := header

	s.AddBits(uint64(15-size), 4)
	s.AddBits(bits, size*8)

	crc := s.CRC()
	s.AddBits(uint64(crc), 15)

	return Frame{
		ID:        id,
		Size:      size,
		Data:      bits,
		CRC:       crc,
		StuffBits: s.StuffBits(),
	}
}

func validateData(bits uint64, size int) error {
	if size < 0 || size > MaxDataSize {
		return fmt.Errorf("%w: can: payload size %d is not in [0, %d]",
			sim.ErrInvalidArgument, size, MaxDataSize)
	}

	if size < MaxDataSize && bits>>(uint(size)*8) != 0 {
		return fmt.Errorf("%w: can: payload %#x does not fit in %d bytes",
			sim.ErrInvalidArgument, bits, size)
	}

	return nil
}

func packBytes(data []byte) uint64 {
	var v uint64
	for i, b := range data {
		v |= uint64(b) << (8 * uint(i))
	}

	return v
}

func unpackBytes(v uint64, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(v >> (8 * uint(i)))
	}

	return out
}
