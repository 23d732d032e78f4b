package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is replaced by the target, e.g. with a UART writer.
	debugPrintln DebugWriter = func(string) {}

	// Disabled by default; printing from the command loop delays ACKs.
	debugEnabled bool

	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the goroutine that drains DebugAsync messages
// into the current writer. Call this from main() after SetDebugWriter.
func InitAsyncDebug() {
	w := debugPrintln
	ch := make(chan string, 16)
	debugChan = ch
	go func() {
		for msg := range ch {
			w(msg)
		}
	}()
}

// DebugPrintln writes a message synchronously when debug is enabled.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a message for the async writer, dropping it if the
// queue is full.
func DebugAsync(msg string) {
	if debugChan == nil || !debugEnabled {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}
