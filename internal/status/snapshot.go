// internal/status/snapshot.go
package status

// Snapshot is the bridge loop's observable state after a cycle.
// It contains no logic.
type Snapshot struct {
	State  State
	Health uint16

	// SensorLatch is the last sensor value announced on the serial link.
	SensorLatch bool

	// Cycles counts completed bridge cycles, including failed ones.
	Cycles uint64

	// FaultStreak counts consecutive cycles ending in an unclassified fault.
	FaultStreak int
}
