package widget

import "github.com/zhouzirui/genie-widget/internal/model/chat"

// EventType names a widget state change.
type EventType string

const (
	EventEntryAppended     EventType = "append"
	EventEntryResolved     EventType = "resolve"
	EventLogCleared        EventType = "clear"
	EventInputChanged      EventType = "input"
	EventVisibilityChanged EventType = "visibility"
	EventScrolledToTail    EventType = "scroll"
)

// Event describes one mutation of the widget. Only the fields relevant to
// Type are set.
type Event struct {
	Type    EventType
	Entry   chat.Entry
	Input   string
	Visible bool
}

// Listener observes widget mutations in the order they happen. It is called
// with the widget lock held and must not call back into the widget.
type Listener interface {
	OnWidgetEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnWidgetEvent calls f.
func (f ListenerFunc) OnWidgetEvent(ev Event) {
	f(ev)
}

type nopListener struct{}

func (nopListener) OnWidgetEvent(Event) {}
