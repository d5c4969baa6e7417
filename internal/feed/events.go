package feed

// Event identifies one lifecycle phase of a feed execution.
type Event string

// Lifecycle events, in execution order, plus the two out-of-band events.
const (
	EventInput     Event = "input"
	EventMetainfo  Event = "metainfo"
	EventFilter    Event = "filter"
	EventDownload  Event = "download"
	EventModify    Event = "modify"
	EventOutput    Event = "output"
	EventExit      Event = "exit"
	EventAbort     Event = "abort"
	EventTerminate Event = "terminate"
)

// Events is the ordered list of lifecycle events a normal execution
// walks. EventAbort and EventTerminate are dispatched out of band and
// are deliberately absent.
var Events = []Event{
	EventInput,
	EventMetainfo,
	EventFilter,
	EventDownload,
	EventModify,
	EventOutput,
	EventExit,
}

// IsMutating reports whether the event has external side effects.
// Learn mode skips mutating events so a run can seed caches without
// downloading or producing output.
func IsMutating(event Event) bool {
	return event == EventDownload || event == EventOutput
}
