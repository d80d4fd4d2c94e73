package types

// Stage names the step a long-running operation is in
type Stage string

const (
	StagePreflight Stage = "preflight"
	StageMove      Stage = "move"
	StageVerify    Stage = "verify"
	StageLink      Stage = "link"
	StageRegistry  Stage = "registry"
	StageComplete  Stage = "complete"
	StageRollback  Stage = "rollback"
)

// Progress is one best-effort progress sample
type Progress struct {
	Stage       Stage   `json:"stage"`
	Percent     float64 `json:"percent"`
	CurrentItem string  `json:"currentItem,omitempty"`
}

// SendProgress delivers p without ever blocking; samples are dropped when
// the consumer is slow or ch is nil.
func SendProgress(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}
