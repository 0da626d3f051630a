package crop

import "fmt"

// Event names accepted by ParseEvent.
const (
	EventPointerDown = "pointer_down"
	EventPointerMove = "pointer_move"
	EventPointerUp   = "pointer_up"
	EventApply       = "apply"
	EventSkip        = "skip"
	EventReset       = "reset"
)

// ParseEvent builds an Event from its wire name and display coordinates.
func ParseEvent(kind string, x, y float64) (Event, error) {
	p := Point{X: x, Y: y}
	switch kind {
	case EventPointerDown:
		return PointerDown{p}, nil
	case EventPointerMove:
		return PointerMove{p}, nil
	case EventPointerUp:
		return PointerUp{p}, nil
	case EventApply:
		return Apply{}, nil
	case EventSkip:
		return Skip{}, nil
	case EventReset:
		return Reset{}, nil
	}
	return nil, fmt.Errorf("unknown crop event %q", kind)
}
