package network

import "github.com/sarchlab/elevsim/sim"

// Hook positions of a scheduler. The item of every position is the payload.
var (
	// HookPosEnqueue fires when a payload enters the outgoing queue.
	HookPosEnqueue = &sim.HookPos{Name: "Enqueue"}

	// HookPosTxStart fires when a payload starts to be transmitted. The
	// detail is a TxStartDetail.
	HookPosTxStart = &sim.HookPos{Name: "TxStart"}

	// HookPosTxDrop fires when a fault model drops a payload at the start or
	// at the end of its transmission. The detail is a DropDetail.
	HookPosTxDrop = &sim.HookPos{Name: "TxDrop"}

	// HookPosDeliver fires after a payload has been copied to the receivers.
	HookPosDeliver = &sim.HookPos{Name: "Deliver"}

	// HookPosAbort fires when a fault model aborts the payload in flight. The
	// detail is a DropDetail.
	HookPosAbort = &sim.HookPos{Name: "Abort"}
)

// Stage tells where in its life a payload was dropped.
type Stage int

// The stages at which a payload can be dropped.
const (
	StageStart Stage = iota
	StageDelivery
	StageInFlight
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageDelivery:
		return "delivery"
	default:
		return "in-flight"
	}
}

// TxStartDetail describes a transmission that just started.
type TxStartDetail struct {
	Bits  int
	Delay sim.VTime
}

// DropDetail describes why a payload did not reach its receivers.
type DropDetail struct {
	Stage Stage
	By    []string
}
