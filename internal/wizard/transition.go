package wizard

type transitionKind int

const (
	stay transitionKind = iota
	advance
	rewind
	jump
	leave
)

// Transition tells the engine where the session goes after a step
type Transition struct {
	kind   transitionKind
	target int
}

// Stay keeps the cursor where it is, typically after a re-prompt
func Stay() Transition { return Transition{kind: stay} }

// Advance moves to the next step
func Advance() Transition { return Transition{kind: advance} }

// Rewind moves back one step
func Rewind() Transition { return Transition{kind: rewind} }

// JumpTo moves to step n
func JumpTo(n int) Transition { return Transition{kind: jump, target: n} }

// Leave ends the scene and destroys the session
func Leave() Transition { return Transition{kind: leave} }

// apply returns the new cursor, or ok=false when the scene is over
func (t Transition) apply(cursor, steps int) (next int, ok bool) {
	switch t.kind {
	case leave:
		return 0, false
	case advance:
		next = cursor + 1
	case rewind:
		next = cursor - 1
		if next < 0 {
			next = 0
		}
	case jump:
		next = t.target
	default:
		next = cursor
	}
	if next >= steps || next < 0 {
		return 0, false
	}
	return next, true
}

func (t Transition) String() string {
	switch t.kind {
	case advance:
		return "advance"
	case rewind:
		return "rewind"
	case jump:
		return "jump"
	case leave:
		return "leave"
	default:
		return "stay"
	}
}
