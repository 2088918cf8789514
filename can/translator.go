package can

import (
	"fmt"
	"strconv"

	"github.com/sarchlab/elevsim/sim"
)

// SetInt stores value as a two's complement integer of size bits, starting at
// payload bit start.
func SetInt(bits *uint64, value int64, start, size int) error {
	if err := checkField(start, size); err != nil {
		return err
	}

	if size < 64 {
		limit := int64(1) << uint(size-1)
		if value >= limit || value < -limit {
			return fmt.Errorf("%w: can: %d does not fit in %d signed bits",
				sim.ErrInvalidArgument, value, size)
		}
	}

	setField(bits, uint64(value), start, size)

	return nil
}

// Int reads a two's complement integer of size bits, starting at payload bit
// start. The result is sign extended.
func Int(bits uint64, start, size int) (int64, error) {
	if err := checkField(start, size); err != nil {
		return 0, err
	}

	v := field(bits, start, size)
	if size < 64 && v>>uint(size-1)&1 == 1 {
		v |= ^uint64(0) << uint(size)
	}

	return int64(v), nil
}

// SetUint stores value as an unsigned integer of size bits, starting at
// payload bit start.
func SetUint(bits *uint64, value uint64, start, size int) error {
	if err := checkField(start, size); err != nil {
		return err
	}

	if size < 64 && value>>uint(size) != 0 {
		return fmt.Errorf("%w: can: %d does not fit in %d unsigned bits",
			sim.ErrInvalidArgument, value, size)
	}

	setField(bits, value, start, size)

	return nil
}

// Uint reads an unsigned integer of size bits, starting at payload bit start.
func Uint(bits uint64, start, size int) (uint64, error) {
	if err := checkField(start, size); err != nil {
		return 0, err
	}

	return field(bits, start, size), nil
}

func checkField(start, size int) error {
	if size <= 0 || size > 64 {
		return fmt.Errorf("%w: can: field size %d", sim.ErrInvalidArgument, size)
	}

	if start < 0 || start+size > 64 {
		return fmt.Errorf("%w: can: field [%d, %d) is outside the payload",
			sim.ErrInvalidArgument, start, start+size)
	}

	return nil
}

func fieldMask(size int) uint64 {
	if size == 64 {
		return ^uint64(0)
	}

	return 1<<uint(size) - 1
}

func setField(bits *uint64, v uint64, start, size int) {
	mask := fieldMask(size) << uint(start)
	*bits = *bits&^mask | (v<<uint(start))&mask
}

func field(bits uint64, start, size int) uint64 {
	return bits >> uint(start) & fieldMask(size)
}

// IntegerTranslator stores a 32-bit signed integer in a 4-byte payload.
type IntegerTranslator struct {
	m *Mailbox
}

// NewIntegerTranslator attaches an integer translator to m.
func NewIntegerTranslator(m *Mailbox) *IntegerTranslator {
	t := &IntegerTranslator{m: m}
	m.SetTranslator(t)

	return t
}

// ByteSize returns 4.
func (t *IntegerTranslator) ByteSize() int {
	return 4
}

// SetValue writes the value into the mailbox.
func (t *IntegerTranslator) SetValue(v int32) {
	var bits uint64
	setField(&bits, uint64(uint32(v)), 0, 32)

	if err := t.m.SetData(bits, t.ByteSize()); err != nil {
		panic(err)
	}
}

// Value reads the value from the mailbox.
func (t *IntegerTranslator) Value() int32 {
	return int32(uint32(field(t.m.Data(), 0, 32)))
}

// Format renders the payload of m in hexadecimal.
func (t *IntegerTranslator) Format(m *Mailbox) string {
	v := int64(int32(uint32(field(m.Data(), 0, 32))))
	if v < 0 {
		return "-0x" + strconv.FormatInt(-v, 16)
	}

	return "0x" + strconv.FormatInt(v, 16)
}

// BooleanTranslator stores a flag in bit 31 of a 4-byte payload.
type BooleanTranslator struct {
	m *Mailbox
}

const booleanBit = 31

// NewBooleanTranslator attaches a boolean translator to m.
func NewBooleanTranslator(m *Mailbox) *BooleanTranslator {
	t := &BooleanTranslator{m: m}
	m.SetTranslator(t)

	return t
}

// ByteSize returns 4.
func (t *BooleanTranslator) ByteSize() int {
	return 4
}

// SetValue writes the flag into the mailbox.
func (t *BooleanTranslator) SetValue(v bool) {
	var bits uint64
	if v {
		bits = 1 << booleanBit
	}

	if err := t.m.SetData(bits, t.ByteSize()); err != nil {
		panic(err)
	}
}

// Value reads the flag from the mailbox.
func (t *BooleanTranslator) Value() bool {
	return t.m.Data()>>booleanBit&1 == 1
}

// Format renders the payload of m as true or false.
func (t *BooleanTranslator) Format(m *Mailbox) string {
	return strconv.FormatBool(m.Data()>>booleanBit&1 == 1)
}
