// Digital output support: Klipper's digital_out protocol on top of the
// GPIO HAL and the timer scheduler.
package core

import (
	"stm32io/protocol"
)

// DigitalOut flags
const (
	DF_ON         = 1 << 0 // pin is currently high
	DF_TOGGLING   = 1 << 1 // software PWM active
	DF_CHECK_END  = 1 << 2 // max_duration is being enforced
	DF_DEFAULT_ON = 1 << 3 // level to return to on shutdown
)

// DigitalOut is one configured output pin.
type DigitalOut struct {
	OID   uint8
	Pin   GPIOPin
	Flags uint8

	Timer Timer

	OnDuration  uint32
	OffDuration uint32
	CycleTime   uint32
	EndTime     uint32

	// MaxDuration bounds how long the pin may sit away from its default
	// level; zero disables the check.
	MaxDuration uint32
}

var digitalOutputs = make(map[uint8]*DigitalOut)

// InitGPIOCommands registers the digital output, digital input and port
// commands.
func InitGPIOCommands() {
	RegisterCommand("config_digital_out", "oid=%c pin=%u value=%c default_value=%c max_duration=%u", handleConfigDigitalOut)
	RegisterCommand("queue_digital_out", "oid=%c clock=%u on_ticks=%u", handleQueueDigitalOut)
	RegisterCommand("update_digital_out", "oid=%c value=%c", handleUpdateDigitalOut)
	RegisterCommand("set_digital_out_pwm_cycle", "oid=%c cycle_ticks=%u", handleSetDigitalOutPWMCycle)

	initDigitalInCommands()
	initPortCommands()
}

func (d *DigitalOut) setOn(on bool) {
	if on {
		d.Flags |= DF_ON
	} else {
		d.Flags &^= DF_ON
	}
}

func (d *DigitalOut) isOn() bool      { return d.Flags&DF_ON != 0 }
func (d *DigitalOut) defaultOn() bool { return d.Flags&DF_DEFAULT_ON != 0 }

// drive writes level to the pin and records it.
func (d *DigitalOut) drive(level bool) error {
	if err := MustGPIO().SetPin(d.Pin, level); err != nil {
		return err
	}
	d.setOn(level)
	return nil
}

// handleConfigDigitalOut: config_digital_out oid=%c pin=%u value=%c default_value=%c max_duration=%u
func handleConfigDigitalOut(data *[]byte) error {
	args, err := decodeArgs(data, 5)
	if err != nil {
		return err
	}
	oid, pin, value, defaultValue, maxDuration := args[0], args[1], args[2], args[3], args[4]

	dout := &DigitalOut{
		OID:         uint8(oid),
		Pin:         GPIOPin(pin),
		MaxDuration: maxDuration,
	}
	if defaultValue != 0 {
		dout.Flags |= DF_DEFAULT_ON
	}

	if err := MustGPIO().ConfigureOutput(dout.Pin); err != nil {
		return err
	}
	if err := dout.drive(value != 0); err != nil {
		return err
	}

	digitalOutputs[dout.OID] = dout
	return nil
}

// handleQueueDigitalOut: queue_digital_out oid=%c clock=%u on_ticks=%u
func handleQueueDigitalOut(data *[]byte) error {
	args, err := decodeArgs(data, 3)
	if err != nil {
		return err
	}
	clock, onTicks := args[1], args[2]

	dout, ok := digitalOutputs[uint8(args[0])]
	if !ok {
		return nil
	}

	dout.Flags &^= DF_TOGGLING
	if dout.CycleTime != 0 && onTicks < dout.CycleTime {
		dout.OnDuration = onTicks
		dout.OffDuration = dout.CycleTime - onTicks
		if onTicks > 0 {
			dout.Flags |= DF_TOGGLING
		}
	} else {
		// on_ticks at or beyond the cycle means solid on
		dout.OnDuration = dout.CycleTime
		dout.OffDuration = 0
	}
	if dout.Flags&DF_TOGGLING == 0 {
		dout.setOn(onTicks > 0)
	}

	if dout.MaxDuration != 0 {
		active := dout.Flags&DF_TOGGLING != 0 || dout.isOn()
		if active != dout.defaultOn() {
			dout.EndTime = clock + dout.MaxDuration
			dout.Flags |= DF_CHECK_END
		} else {
			dout.Flags &^= DF_CHECK_END
		}
	}

	dout.Timer.Next = nil
	dout.Timer.WakeTime = clock
	dout.Timer.Handler = digitalOutLoadEvent
	ScheduleTimer(&dout.Timer)
	return nil
}

// handleUpdateDigitalOut: update_digital_out oid=%c value=%c
func handleUpdateDigitalOut(data *[]byte) error {
	args, err := decodeArgs(data, 2)
	if err != nil {
		return err
	}
	dout, ok := digitalOutputs[uint8(args[0])]
	if !ok {
		return nil
	}
	dout.Flags &^= DF_TOGGLING
	return dout.drive(args[1] != 0)
}

// handleSetDigitalOutPWMCycle: set_digital_out_pwm_cycle oid=%c cycle_ticks=%u
func handleSetDigitalOutPWMCycle(data *[]byte) error {
	args, err := decodeArgs(data, 2)
	if err != nil {
		return err
	}
	if dout, ok := digitalOutputs[uint8(args[0])]; ok {
		dout.CycleTime = args[1]
	}
	return nil
}

// digitalOutFor finds the output that owns timer t.
func digitalOutFor(t *Timer) *DigitalOut {
	for _, d := range digitalOutputs {
		if d != nil && &d.Timer == t {
			return d
		}
	}
	return nil
}

// digitalOutLoadEvent applies a queued update at its scheduled clock.
func digitalOutLoadEvent(t *Timer) uint8 {
	dout := digitalOutFor(t)
	if dout == nil {
		return SF_DONE
	}

	if dout.Flags&DF_TOGGLING != 0 {
		if err := dout.drive(true); err != nil {
			dout.Flags &^= DF_TOGGLING
			return SF_DONE
		}
		t.WakeTime = GetTime() + dout.OnDuration
		t.Handler = digitalOutToggleEvent
		return SF_RESCHEDULE
	}

	if err := MustGPIO().SetPin(dout.Pin, dout.isOn()); err != nil {
		return SF_DONE
	}
	if dout.Flags&DF_CHECK_END != 0 {
		t.WakeTime = dout.EndTime
		t.Handler = digitalOutEndEvent
		return SF_RESCHEDULE
	}
	return SF_DONE
}

// digitalOutToggleEvent flips the pin for software PWM.
func digitalOutToggleEvent(t *Timer) uint8 {
	dout := digitalOutFor(t)
	if dout == nil || dout.Flags&DF_TOGGLING == 0 {
		return SF_DONE
	}

	level := !dout.isOn()
	if err := dout.drive(level); err != nil {
		dout.Flags &^= DF_TOGGLING
		return SF_DONE
	}

	next := dout.OffDuration
	if level {
		next = dout.OnDuration
	}

	now := GetTime()
	if dout.Flags&DF_CHECK_END != 0 && now+next >= dout.EndTime {
		t.WakeTime = dout.EndTime
		t.Handler = digitalOutEndEvent
		return SF_RESCHEDULE
	}
	t.WakeTime = now + next
	return SF_RESCHEDULE
}

// digitalOutEndEvent fires when max_duration elapsed without a refresh
// from the host. That means the host lost control, so the whole MCU shuts
// down.
func digitalOutEndEvent(t *Timer) uint8 {
	if digitalOutFor(t) != nil {
		TryShutdown(ShutdownMaxDuration)
	}
	return SF_DONE
}

// ShutdownDigitalOut returns a pin to its default level and stops toggling.
func ShutdownDigitalOut(dout *DigitalOut) {
	_ = dout.drive(dout.defaultOn())
	dout.Flags &^= DF_TOGGLING | DF_CHECK_END
	cancelTimer(&dout.Timer)
}

// ShutdownAllDigitalOut returns every configured output to its default.
func ShutdownAllDigitalOut() {
	for _, dout := range digitalOutputs {
		if dout != nil {
			ShutdownDigitalOut(dout)
		}
	}
}

// resetDigitalOut forgets every configured output.
func resetDigitalOut() {
	for _, dout := range digitalOutputs {
		cancelTimer(&dout.Timer)
	}
	digitalOutputs = make(map[uint8]*DigitalOut)
}

// decodeArgs reads n VLQ integers from data.
func decodeArgs(data *[]byte, n int) ([]uint32, error) {
	args := make([]uint32, n)
	for i := range args {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
