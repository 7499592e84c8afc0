package gst

import "fmt"

// EventType identifies an event that flows downstream with buffers.
type EventType int

// Event types.
const (
	EventStreamStart EventType = iota
	EventTag
	EventEOS
)

func (t EventType) String() string {
	switch t {
	case EventStreamStart:
		return "stream-start"
	case EventTag:
		return "tag"
	case EventEOS:
		return "eos"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is serialized with the data flow.
type Event struct {
	Type     EventType
	StreamID string
	Tags     TagList
}

// NewStreamStartEvent returns event that starts a stream.
func NewStreamStartEvent(streamID string) *Event {
	return &Event{Type: EventStreamStart, StreamID: streamID}
}

// NewTagEvent returns event with stream tags.
func NewTagEvent(tags TagList) *Event {
	return &Event{Type: EventTag, Tags: tags}
}

// NewEOSEvent returns end of stream event.
func NewEOSEvent() *Event {
	return &Event{Type: EventEOS}
}
