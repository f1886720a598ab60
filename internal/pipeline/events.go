package pipeline

// EventType identifies pipeline events.
type EventType int

const (
	EventFeaturesExtracted EventType = iota
	EventAlignmentComplete
	EventAlignmentFailed
	EventCompositeReady
	EventMaskChanged
	EventImageRemoved
)

func (e EventType) String() string {
	switch e {
	case EventFeaturesExtracted:
		return "features-extracted"
	case EventAlignmentComplete:
		return "alignment-complete"
	case EventAlignmentFailed:
		return "alignment-failed"
	case EventCompositeReady:
		return "composite-ready"
	case EventMaskChanged:
		return "mask-changed"
	case EventImageRemoved:
		return "image-removed"
	default:
		return "unknown"
	}
}

// EventListener is called when an event occurs. data is the image index,
// or an *alignment.Failure for EventAlignmentFailed.
type EventListener func(data interface{})

type pendingEvent struct {
	event EventType
	data  interface{}
}

// On registers an event listener for the specified event type.
func (p *Pipeline) On(event EventType, listener EventListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners[event] = append(p.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type. Snapshots queue
// their events until the result is applied.
func (p *Pipeline) Emit(event EventType, data interface{}) {
	p.mu.Lock()
	if p.detached {
		p.pending = append(p.pending, pendingEvent{event, data})
		p.mu.Unlock()
		return
	}
	listeners := p.listeners[event]
	p.mu.Unlock()

	for _, listener := range listeners {
		listener(data)
	}
}
