package webhook

import (
	"math"
	"strings"
	"time"

	"github.com/voxlog/voxlog/internal/database/models"
)

// The extraction tables below are the single source of truth for field
// precedence: for every normalized column, the listed paths are tried in
// order and the first one that resolves wins. Paths are relative to the
// event message.

// stringField binds one string column to its payload paths.
type stringField struct {
	paths  []string
	assign func(*models.Call, *string)
}

var stringFields = []stringField{
	{[]string{"call.orgId", "assistant.orgId", "orgId"}, func(c *models.Call, v *string) { c.OrgID = v }},
	{[]string{"call.type", "callType"}, func(c *models.Call, v *string) { c.CallType = v }},
	{[]string{"call.status", "status"}, func(c *models.Call, v *string) { c.Status = v }},
	{[]string{"call.endedReason", "endedReason"}, func(c *models.Call, v *string) { c.EndedReason = v }},
	{[]string{"phoneNumberId", "phoneNumber.id", "call.phoneNumberId"}, func(c *models.Call, v *string) { c.PhoneNumberID = v }},
	{[]string{"assistant.id", "call.assistantId"}, func(c *models.Call, v *string) { c.AssistantID = v }},
	{[]string{"assistant.name"}, func(c *models.Call, v *string) { c.AssistantName = v }},
	{[]string{"assistant.model.model", "assistant.model"}, func(c *models.Call, v *string) { c.AssistantModel = v }},
	{[]string{"assistant.voice.voiceId", "assistant.voice"}, func(c *models.Call, v *string) { c.AssistantVoice = v }},
	{[]string{"call.phoneCallProvider", "call.transport.provider"}, func(c *models.Call, v *string) { c.Provider = v }},
	{[]string{"call.phoneCallTransport"}, func(c *models.Call, v *string) { c.Transport = v }},
	{[]string{"analysis.structuredData.summary", "summary", "analysis.summary"}, func(c *models.Call, v *string) { c.Summary = v }},
}

// timeField binds one timestamp column to its payload paths. Values may be
// epoch milliseconds or RFC 3339 strings depending on the payload shape.
type timeField struct {
	paths  []string
	assign func(*models.Call, *time.Time)
}

var timeFields = []timeField{
	{[]string{"timestamp"}, func(c *models.Call, v *time.Time) { c.EventTime = v }},
	{[]string{"call.createdAt", "startedAt", "call.startedAt"}, func(c *models.Call, v *time.Time) { c.StartedAt = v }},
	{[]string{"call.updatedAt", "endedAt", "call.endedAt"}, func(c *models.Call, v *time.Time) { c.EndedAt = v }},
}

// jsonField binds one side-channel column to the payload subtree stored
// verbatim for forward compatibility.
type jsonField struct {
	paths  []string
	assign func(*models.Call, *string)
}

var jsonFields = []jsonField{
	{[]string{"toolCallList", "toolCalls"}, func(c *models.Call, v *string) { c.ToolCallsJSON = v }},
	{[]string{"artifact"}, func(c *models.Call, v *string) { c.ArtifactJSON = v }},
	{[]string{"call"}, func(c *models.Call, v *string) { c.CallJSON = v }},
	{[]string{"assistant"}, func(c *models.Call, v *string) { c.AssistantJSON = v }},
	{[]string{"phoneNumber"}, func(c *models.Call, v *string) { c.PhoneNumberJSON = v }},
	{[]string{"analysis"}, func(c *models.Call, v *string) { c.AnalysisJSON = v }},
}

// CallID returns the platform call identifier, or "" when the event does not
// reference a call.
func CallID(env *Envelope) string {
	for _, path := range []string{"call.id", "callId"} {
		if s, ok := env.Get(path).String(); ok && s != "" {
			return s
		}
	}
	return ""
}

// Customer returns the effective customer object for the event: the
// message-level customer when it is a non-empty object, otherwise the one
// embedded in the call object. Returns nil when neither is present.
func Customer(env *Envelope) map[string]any {
	if obj, ok := env.Get("customer").Object(); ok && len(obj) > 0 {
		return obj
	}
	if obj, ok := env.Get("call.customer").Object(); ok && len(obj) > 0 {
		return obj
	}
	return nil
}

// DirectionFromCallType infers the call direction from the call-type string
// by case-insensitive substring match.
func DirectionFromCallType(callType string) string {
	t := strings.ToLower(callType)
	switch {
	case strings.Contains(t, "inbound"):
		return "inbound"
	case strings.Contains(t, "outbound"):
		return "outbound"
	default:
		return "unknown"
	}
}

// ExtractCall produces a normalized call record from the envelope. Extraction
// is total: a missing or mistyped field becomes null, never an error.
func ExtractCall(env *Envelope, eventType string) *models.Call {
	c := &models.Call{
		VapiCallID: CallID(env),
		EventType:  eventType,
		Direction:  "unknown",
		RawPayload: string(env.Raw()),
	}

	for _, f := range stringFields {
		f.assign(c, firstString(env, f.paths))
	}
	for _, f := range timeFields {
		f.assign(c, firstTime(env, f.paths))
	}
	for _, f := range jsonFields {
		f.assign(c, firstJSON(env, f.paths))
	}

	// Organization id has one extra fallback outside the message envelope.
	if c.OrgID == nil {
		if s, ok := env.GetRoot("orgId").String(); ok {
			c.OrgID = &s
		}
	}

	if c.CallType != nil {
		c.Direction = DirectionFromCallType(*c.CallType)
	}

	if cost := firstNumber(env, []string{"cost", "call.cost"}); cost != nil {
		c.Cost = cost
	}
	if dur := firstNumber(env, []string{"durationSeconds", "call.durationSeconds"}); dur != nil {
		rounded := int64(math.Round(*dur))
		c.DurationSeconds = &rounded
	}

	if customer := Customer(env); customer != nil {
		if s, ok := get(customer, "number").String(); ok {
			c.CustomerNumber = &s
		}
		if s, ok := get(customer, "sipUri").String(); ok {
			c.CustomerSIPURI = &s
		}
		c.CustomerJSON = wrap(customer).JSON()
	}

	c.LastUserMessage, c.LastAssistantMessage = lastMessages(env)

	return c
}

// lastMessages scans the artifact message list from newest to oldest and
// returns the most recent user and assistant utterances. The scan stops as
// soon as both are found.
func lastMessages(env *Envelope) (lastUser, lastAssistant *string) {
	messages, ok := env.Get("artifact.messages").Array()
	if !ok {
		return nil, nil
	}

	for i := len(messages) - 1; i >= 0; i-- {
		role, ok := get(messages[i], "role").String()
		if !ok {
			continue
		}
		text, ok := get(messages[i], "message").String()
		if !ok {
			// Some payload shapes use the OpenAI field name.
			if text, ok = get(messages[i], "content").String(); !ok {
				continue
			}
		}

		switch role {
		case "user":
			if lastUser == nil {
				lastUser = &text
			}
		case "bot", "assistant":
			if lastAssistant == nil {
				lastAssistant = &text
			}
		}

		if lastUser != nil && lastAssistant != nil {
			break
		}
	}

	return lastUser, lastAssistant
}

// firstString returns the first path that resolves to a string.
func firstString(env *Envelope, paths []string) *string {
	for _, path := range paths {
		if s, ok := env.Get(path).String(); ok {
			return &s
		}
	}
	return nil
}

// firstNumber returns the first path that resolves to a JSON number.
func firstNumber(env *Envelope, paths []string) *float64 {
	for _, path := range paths {
		if f, ok := env.Get(path).Number(); ok {
			return &f
		}
	}
	return nil
}

// firstTime returns the first path that resolves to a parseable timestamp:
// epoch milliseconds or an RFC 3339 string.
func firstTime(env *Envelope, paths []string) *time.Time {
	for _, path := range paths {
		if ts := parseTime(env.Get(path)); ts != nil {
			return ts
		}
	}
	return nil
}

// firstJSON returns the first path that resolves to any non-null value,
// re-encoded as a JSON string.
func firstJSON(env *Envelope, paths []string) *string {
	for _, path := range paths {
		if s := env.Get(path).JSON(); s != nil {
			return s
		}
	}
	return nil
}

func parseTime(v Value) *time.Time {
	if ms, ok := v.Number(); ok {
		t := time.UnixMilli(int64(ms)).UTC()
		return &t
	}
	if s, ok := v.String(); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
