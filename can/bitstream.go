package can

// CRCPolynomial is the generator polynomial of the 15-bit frame checksum.
const CRCPolynomial = 0x4599

// A BitStream consumes the framed bits of a message and keeps track of the
// running checksum and of the stuff bits a transmitter would insert.
//
// The zero value is an empty stream. BitStream is a value type; copying it
// forks the stream.
type BitStream struct {
	crc       uint16
	stuffBits int
	sameBits  int
	lastBit   bool
	started   bool
	bits      int
}

// AddBit appends one bit.
func (s *BitStream) AddBit(bit bool) {
	s.bits++
	s.addToCRC(bit)
	s.addToStuffing(bit)
}

// AddBits appends the lowest n bits of v, most significant first.
func (s *BitStream) AddBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		s.AddBit((v>>uint(i))&1 == 1)
	}
}

// CRC returns the checksum of the bits appended so far.
func (s *BitStream) CRC() uint16 {
	return s.crc
}

// StuffBits returns the number of stuff bits inserted so far.
func (s *BitStream) StuffBits() int {
	return s.stuffBits
}

// Len returns the number of bits appended so far, stuff bits excluded.
func (s *BitStream) Len() int {
	return s.bits
}

func (s *BitStream) addToCRC(bit bool) {
	next := s.crc >> 14
	if bit {
		next ^= 1
	}

	s.crc = (s.crc << 1) & 0x7FFE
	if next == 1 {
		s.crc ^= CRCPolynomial
	}
}

// A stuff bit is the complement of the run it ends and starts a new run.
func (s *BitStream) addToStuffing(bit bool) {
	if !s.started {
		s.started = true
		s.lastBit = bit
		s.sameBits = 1

		return
	}

	if bit != s.lastBit {
		s.lastBit = bit
		s.sameBits = 1

		return
	}

	s.sameBits++
	if s.sameBits == 5 {
		s.stuffBits++
		s.lastBit = !s.lastBit
		s.sameBits = 1
	}
}
