package core

// Request is the input of one worker invocation. ThreadID groups invocations
// belonging to the same conversation; remote endpoints key transcripts by it.
type Request struct {
	ThreadID string    `json:"thread_id,omitempty" msgpack:"thread_id,omitempty"`
	Messages []Message `json:"messages" msgpack:"messages"`
}

// NewRequest creates a request with a fresh thread ID.
func NewRequest(msgs ...Message) Request {
	return Request{ThreadID: NewID(), Messages: msgs}
}
