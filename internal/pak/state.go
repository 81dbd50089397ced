package pak

// State is a step of the archive transaction.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateExtracting
	StateScanning
	StatePreviewing
	StatePatching
	StateBackingUp
	StateRepacking
	StateSwapping
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateValidating: "validating",
	StateExtracting: "extracting",
	StateScanning:   "scanning",
	StatePreviewing: "previewing",
	StatePatching:   "patching",
	StateBackingUp:  "backing up",
	StateRepacking:  "repacking",
	StateSwapping:   "swapping",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
