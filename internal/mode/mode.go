// Package mode defines whether a forward pass is training or inference.
package mode

// Mode selects between batch statistics (Train) and running statistics
// (Eval) in normalization layers, and whether deferred updates are queued.
type Mode int

const (
	// Eval runs inference: running statistics, no updates queued.
	Eval Mode = iota
	// Train uses batch statistics and queues running-statistic updates.
	Train
)

// IsTraining reports whether m is Train.
func (m Mode) IsTraining() bool {
	return m == Train
}

func (m Mode) String() string {
	switch m {
	case Train:
		return "train"
	case Eval:
		return "eval"
	default:
		return "unknown"
	}
}
