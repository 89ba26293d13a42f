package app

import "sync"

// ControlState mirrors the prompt input: disabled while a submission runs,
// enabled and focused again once it ends.
type ControlState struct {
	Disabled bool `json:"disabled"`
	Focused  bool `json:"focused"`
}

var (
	controlBusy     = ControlState{Disabled: true}
	controlReleased = ControlState{Focused: true}
)

// InputGate is the per-control mutual exclusion for submissions. A second
// attempt while the control is disabled is rejected, not queued.
type InputGate struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	onChange func(controlID string, state ControlState)
}

// NewInputGate takes an optional hook told about every control transition.
func NewInputGate(onChange func(controlID string, state ControlState)) *InputGate {
	return &InputGate{
		inFlight: make(map[string]struct{}),
		onChange: onChange,
	}
}

// Acquire disables the control. The returned release re-enables and focuses
// it; calling release more than once is harmless.
func (g *InputGate) Acquire(controlID string) (func(), bool) {
	g.mu.Lock()
	if _, busy := g.inFlight[controlID]; busy {
		g.mu.Unlock()
		return nil, false
	}
	g.inFlight[controlID] = struct{}{}
	g.mu.Unlock()
	g.notify(controlID, controlBusy)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, controlID)
			g.mu.Unlock()
			g.notify(controlID, controlReleased)
		})
	}, true
}

func (g *InputGate) Busy(controlID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[controlID]
	return busy
}

func (g *InputGate) notify(controlID string, state ControlState) {
	if g.onChange != nil {
		g.onChange(controlID, state)
	}
}
