// internal/status/constants.go
package status

// State is the bridge loop's position in its state machine.
// Only the Modbus side has a disconnected state; the serial link is
// assumed open for the whole run.
type State int

const (
	// StateConnecting: Modbus is not connected; no plant I/O is attempted.
	StateConnecting State = iota
	// StatePolling: Modbus is connected; full bridge cycles run.
	StatePolling
	// StateStopped: the loop has returned after an interrupt.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before the first cycle completes.
const HealthUnknown uint16 = 0

// HealthOK represents a bridge completing cycles without unclassified faults.
const HealthOK uint16 = 1

// HealthError represents a persistent failure: the fault threshold was reached.
const HealthError uint16 = 2

// HealthStale represents a bridge waiting on the Modbus link.
const HealthStale uint16 = 3
