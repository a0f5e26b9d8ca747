package llmcall

import "github.com/clinsift/clinsift/internal/providers"

// Sink receives call records. Implementations must not block the caller for
// longer than a queue handoff; the JSONL store buffers writes internally.
type Sink interface {
	Append(call *Call)
}

// Recorder handles fire-and-forget LLM call recording via a Sink.
type Recorder struct {
	sink Sink
}

// NewRecorder creates a new LLM call recorder. A nil sink disables recording.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record captures an LLM call asynchronously.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) {
	if r == nil || r.sink == nil {
		return
	}

	call := FromChatResult(result, opts)
	if call == nil {
		return
	}
	r.sink.Append(call)
}

// RecordCall captures an already-constructed Call asynchronously.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || r.sink == nil || call == nil {
		return
	}
	r.sink.Append(call)
}
