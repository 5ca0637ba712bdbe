package domain

// OpCode is the obs-websocket v5 message op code.
type OpCode int

const (
	OpHello       OpCode = 0
	OpIdentify    OpCode = 1
	OpIdentified  OpCode = 2
	OpReidentify  OpCode = 3
	OpEvent       OpCode = 5
	OpRequest     OpCode = 6
	OpRequestResp OpCode = 7
)

// RPCVersion is the protocol version declared during Identify.
const RPCVersion = 1

// ErrCodeAlreadyExists is returned by OBS when a create call names an
// existing resource. Idempotent ensure/create operations treat it as success.
const ErrCodeAlreadyExists = 601

// Request is an outbound correlated request frame (op=6).
type Request struct {
	Type string         `json:"requestType"`
	ID   string         `json:"requestId"`
	Data map[string]any `json:"requestData,omitempty"`
}

// Response correlates to exactly one Request by ID.
type Response struct {
	Success      bool
	RequestType  string
	RequestID    string
	Data         map[string]any
	ErrorCode    int
	ErrorMessage string
}

// AlreadyExists reports whether the response failed only because the
// resource already exists.
func (r Response) AlreadyExists() bool {
	return !r.Success && r.ErrorCode == ErrCodeAlreadyExists
}

// Str returns a string field from the response payload.
func (r Response) Str(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// Bool returns a boolean field from the response payload.
func (r Response) Bool(key string) bool {
	b, _ := r.Data[key].(bool)
	return b
}

// List returns a slice field from the response payload.
func (r Response) List(key string) []any {
	l, _ := r.Data[key].([]any)
	return l
}

// Event is an unsolicited server-pushed message. It has no correlation ID and
// may arrive interleaved with pending responses.
type Event struct {
	Type string
	Data map[string]any
}

// Event types OBS pushes that this tool cares about.
const (
	EventRecordStateChanged = "RecordStateChanged"
	EventSceneChanged       = "CurrentProgramSceneChanged"
	EventInputCreated       = "InputCreated"
	EventInputRemoved       = "InputRemoved"
	EventProfileChanged     = "CurrentProfileChanged"
)
