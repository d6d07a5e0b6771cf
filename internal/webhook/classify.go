package webhook

// EventKind is the semantic classification of an inbound event.
type EventKind int

const (
	// KindUnrecognized covers every event type this service does not
	// persist (status updates, transcripts, speech updates, ...). These
	// are acknowledged and dropped, never treated as errors.
	KindUnrecognized EventKind = iota
	KindToolCalls
	KindEndOfCallReport
)

// Platform wire values for the event-type discriminator.
const (
	TypeToolCalls       = "tool-calls"
	TypeEndOfCallReport = "end-of-call-report"
)

// Classify determines the event kind from the envelope's type discriminator
// and returns the raw type string alongside it. A missing or non-string type
// classifies as unrecognized with an empty raw type.
func Classify(env *Envelope) (EventKind, string) {
	raw, ok := env.Get("type").String()
	if !ok {
		return KindUnrecognized, ""
	}

	switch raw {
	case TypeToolCalls:
		return KindToolCalls, raw
	case TypeEndOfCallReport:
		return KindEndOfCallReport, raw
	default:
		return KindUnrecognized, raw
	}
}

// ToolCallID returns the id of the first tool-call entry carrying one, or ""
// when the event has no identifiable tool call. Callers that receive a
// non-empty id must echo it in a tool-result response envelope.
func ToolCallID(env *Envelope) string {
	for _, path := range []string{"toolCallList", "toolCalls"} {
		list, ok := env.Get(path).Array()
		if !ok {
			continue
		}
		for _, entry := range list {
			if id, ok := get(entry, "id").String(); ok && id != "" {
				return id
			}
		}
	}
	return ""
}
