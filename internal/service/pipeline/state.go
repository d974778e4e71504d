package pipeline

// State is a step of the pipeline. States only move forward.
type State int

// Pipeline states in execution order.
const (
	StateInit State = iota
	StateSubmodulesChecked
	StateSharedBuilt
	StatePlatformBuilt
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSubmodulesChecked:
		return "submodules-checked"
	case StateSharedBuilt:
		return "shared-built"
	case StatePlatformBuilt:
		return "platform-built"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
