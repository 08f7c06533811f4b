package core

// Delta is an incremental, append-only patch to a ConversationState: Messages
// were appended starting at position Offset.
type Delta struct {
	Offset   int       `json:"offset" msgpack:"offset"`
	Messages []Message `json:"messages" msgpack:"messages"`
}

// ConversationState is the ordered, append-only message log owned by a single
// runtime for the duration of one invocation. It is not safe for concurrent
// mutation; runtimes append from their own goroutine only.
type ConversationState struct {
	messages []Message
}

// NewConversationState seeds a state with an initial message list.
func NewConversationState(msgs ...Message) *ConversationState {
	s := &ConversationState{}
	s.messages = append(s.messages, msgs...)
	return s
}

// Append adds messages to the end of the log and returns the resulting Delta.
func (s *ConversationState) Append(msgs ...Message) Delta {
	d := Delta{Offset: len(s.messages), Messages: append([]Message(nil), msgs...)}
	s.messages = append(s.messages, msgs...)
	return d
}

// Apply appends the messages of a delta produced elsewhere (for example by a
// remote runtime) and reports whether the offset matched the local length.
func (s *ConversationState) Apply(d Delta) bool {
	ok := d.Offset == len(s.messages)
	s.messages = append(s.messages, d.Messages...)
	return ok
}

// Messages returns a copy of the log.
func (s *ConversationState) Messages() []Message {
	return append([]Message(nil), s.messages...)
}

// Len returns the number of messages.
func (s *ConversationState) Len() int { return len(s.messages) }

// Last returns the final message, if any.
func (s *ConversationState) Last() (Message, bool) {
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// ToolResults returns the tool-result messages in append order.
func (s *ConversationState) ToolResults() []Message {
	var out []Message
	for _, m := range s.messages {
		if m.IsToolResult() {
			out = append(out, m)
		}
	}
	return out
}

// Markers returns the annotation messages of the given kind.
func (s *ConversationState) Markers(kind Marker) []Message {
	var out []Message
	for _, m := range s.messages {
		if m.Marker == kind {
			out = append(out, m)
		}
	}
	return out
}
