package pak

// ProgressFunc receives the overall completion percentage, 0..100.
type ProgressFunc func(percent int)

// LogFunc receives one human-readable status line.
type LogFunc func(format string, args ...any)

// StateFunc is called on every state transition.
type StateFunc func(State)

// progress clamps, de-duplicates and keeps reported percentages monotonic.
type progress struct {
	fn   ProgressFunc
	last int
}

func newProgress(fn ProgressFunc) *progress {
	return &progress{fn: fn, last: -1}
}

func (p *progress) set(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= p.last {
		return
	}
	p.last = percent
	if p.fn != nil {
		p.fn(percent)
	}
}

// span reports i of n scaled into [from, to].
func (p *progress) span(from, to, i, n int) {
	if n <= 0 {
		p.set(to)
		return
	}
	p.set(from + (to-from)*i/n)
}
