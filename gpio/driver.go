package gpio

// Configure sets direction and pull for one pin, or for every pin of the
// port when pins is All. Configured pins always get push-pull output type
// and very-high speed.
//
// The All path overwrites MODER, OTYPER, OSPEEDR and PUPDR outright. The
// speed code is only broadcast to every lane for outputs; a bulk input
// configuration writes the bare code, so OSPEEDR ends up 0x00000003. The
// single-pin path read-modify-writes the pin's field in each of them and
// leaves every other lane unchanged.
func Configure(port Port, pins Pins, dir Direction, pull Pull) {
	if !Valid(port, pins) {
		return
	}
	b := banks[port]

	mode := uint32(ModeInput)
	if dir == Output {
		mode = ModeOutput
	}
	otype := uint32(OutputPushPull)
	speed := uint32(SpeedVeryHigh)
	pupd := pullCode(pull)

	if pins.all {
		b.MODER.Set(mode * lanes2)
		b.OTYPER.Set(otype * lanes1)
		if dir == Output {
			b.OSPEEDR.Set(speed * lanes2)
		} else {
			b.OSPEEDR.Set(speed)
		}
		b.PUPDR.Set(pupd * lanes2)
		return
	}

	n := uint8(pins.pin)
	b.MODER.ReplaceBits(mode, mask2, n*2)
	b.OTYPER.ReplaceBits(otype, mask1, n)
	b.OSPEEDR.ReplaceBits(speed, mask2, n*2)
	b.PUPDR.ReplaceBits(pupd, mask2, n*2)
}

// pullCode maps a Pull to its PUPDR field. Anything other than none or up
// selects pull-down.
func pullCode(p Pull) uint32 {
	switch p {
	case PullNone:
		return uint32(PullNone)
	case PullUp:
		return uint32(PullUp)
	default:
		return uint32(PullDown)
	}
}

// WritePin drives one output pin high or low with a single BSRR write.
func WritePin(port Port, pin Pin, high bool) {
	if !Valid(port, Single(pin)) {
		return
	}
	v := uint32(1) << pin
	if !high {
		v <<= resetShift
	}
	banks[port].BSRR.Set(v)
}

// ReadPin returns the input level of one pin, or false for an invalid
// address.
func ReadPin(port Port, pin Pin) bool {
	if !Valid(port, Single(pin)) {
		return false
	}
	return banks[port].IDR.Get()&(uint32(1)<<pin) != 0
}

// WritePort replaces the output data register of the port.
func WritePort(port Port, value uint16) {
	if !Valid(port, Single(0)) {
		return
	}
	banks[port].ODR.Set(uint32(value))
}

// ReadPort returns the input levels of all sixteen pins, or 0 for an
// invalid port.
func ReadPort(port Port) uint16 {
	if !Valid(port, Single(0)) {
		return 0
	}
	return uint16(banks[port].IDR.Get() & portMask)
}
