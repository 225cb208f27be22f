package conversation

type transitionKind int

const (
	kindStay transitionKind = iota
	kindGoto
	kindEnd
)

// Transition is the result of a step.
type Transition struct {
	kind transitionKind
	step string
}

// Goto advances to step.
func Goto(step string) Transition { return Transition{kind: kindGoto, step: step} }

// End finishes the conversation and empties the session.
func End() Transition { return Transition{kind: kindEnd} }

// Stay keeps the current step, typically after invalid input.
func Stay() Transition { return Transition{kind: kindStay} }

func (t Transition) String() string {
	switch t.kind {
	case kindGoto:
		return "goto:" + t.step
	case kindEnd:
		return "end"
	default:
		return "stay"
	}
}
