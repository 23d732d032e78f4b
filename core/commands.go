package core

import (
	"sync/atomic"

	"stm32io/protocol"
)

// FirmwareState holds the connection-level state reported by get_config.
type FirmwareState struct {
	configCRC  uint32 // atomic
	isShutdown uint32 // atomic bool
	oidCount   uint32
	moveCount  uint16
}

var globalState = &FirmwareState{
	moveCount: 16,
}

// Shutdown reasons, sent as static_string_id.
const (
	ShutdownCommandRequest uint16 = iota
	ShutdownMaxDuration
)

var shutdownReasons = []string{
	ShutdownCommandRequest: "Command request",
	ShutdownMaxDuration:    "Digital out max duration exceeded",
}

// InitCoreCommands registers the protocol-level commands.
//
// The host bootstraps with a fixed table in which identify_response is ID 0
// and identify is ID 1, so these two must be registered first.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s")
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("get_config", "", handleGetConfig)
	RegisterCommand("config_reset", "", handleConfigReset)
	RegisterCommand("finalize_config", "crc=%u", handleFinalizeConfig)
	RegisterCommand("allocate_oids", "count=%c", handleAllocateOids)
	RegisterCommand("emergency_stop", "", handleEmergencyStop)
	RegisterCommand("reset", "", handleReset)

	RegisterResponse("clock", "clock=%u")
	RegisterResponse("uptime", "high=%u clock=%u")
	RegisterResponse("config", "is_config=%c crc=%u is_shutdown=%c move_count=%hu")
	RegisterResponse("shutdown", "clock=%u static_string_id=%hu")

	RegisterConstant("STATS_SUMSQ_BASE", uint32(256))
	RegisterEnumeration("static_string_id", shutdownReasons)
}

// handleIdentify: identify offset=%u count=%c
func handleIdentify(data *[]byte) error {
	args, err := decodeArgs(data, 2)
	if err != nil {
		return err
	}
	offset := args[0]
	chunk := GetGlobalDictionary().GetChunk(offset, uint8(args[1]))

	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetUptime(_ *[]byte) error {
	uptime := GetUptime()
	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(uptime>>32))
		protocol.EncodeVLQUint(output, uint32(uptime))
	})
	return nil
}

func handleGetClock(_ *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

func handleGetConfig(_ *[]byte) error {
	crc := atomic.LoadUint32(&globalState.configCRC)
	SendResponse("config", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolToUint(crc != 0))
		protocol.EncodeVLQUint(output, crc)
		protocol.EncodeVLQUint(output, boolToUint(IsShutdown()))
		protocol.EncodeVLQUint(output, uint32(globalState.moveCount))
	})
	return nil
}

// handleConfigReset drops every configured object so the host can send a
// fresh configuration without rebooting the MCU.
func handleConfigReset(_ *[]byte) error {
	ShutdownAllDigitalOut()
	resetTimers()
	resetDigitalOut()
	resetDigitalIn()
	globalState.oidCount = 0
	ResetFirmwareState()
	return nil
}

func handleFinalizeConfig(data *[]byte) error {
	crc, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	atomic.StoreUint32(&globalState.configCRC, crc)
	return nil
}

func handleAllocateOids(data *[]byte) error {
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	globalState.oidCount = count
	return nil
}

func handleEmergencyStop(_ *[]byte) error {
	TryShutdown(ShutdownCommandRequest)
	return nil
}

// TryShutdown enters the shutdown state: outputs return to their defaults
// and the host is told why.
func TryShutdown(reason uint16) {
	atomic.StoreUint32(&globalState.isShutdown, 1)
	ShutdownAllDigitalOut()
	DebugPrintln("[CORE] shutdown: " + shutdownReasons[reason])

	clock := GetTime()
	SendResponse("shutdown", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
		protocol.EncodeVLQUint(output, uint32(reason))
	})
}

func IsShutdown() bool {
	return atomic.LoadUint32(&globalState.isShutdown) != 0
}

// ResetFirmwareState clears the config CRC and the shutdown flag. Called
// when the host reconnects.
func ResetFirmwareState() {
	atomic.StoreUint32(&globalState.configCRC, 0)
	atomic.StoreUint32(&globalState.isShutdown, 0)
}

// Global transport for sending responses (set by main)
var globalTransport *protocol.Transport

func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// SendResponse encodes a registered response on the global transport.
// It is a no-op until a transport is set.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		panic("response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

var (
	globalResetHandler func()

	// resetPending defers the reset until the ACK has gone out.
	resetPending uint32 // atomic bool
)

// SetResetHandler sets the platform-specific reset handler
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

func handleReset(_ *[]byte) error {
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// CheckPendingReset runs the reset handler if a reset was requested.
// Call it from the main loop after output has been flushed.
func CheckPendingReset() {
	if atomic.LoadUint32(&resetPending) != 0 && globalResetHandler != nil {
		globalResetHandler()
	}
}
