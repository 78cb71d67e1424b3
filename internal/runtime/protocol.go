package runtime

// Wire protocol between the host and the isolated Python worker. Every
// request carries a correlation id that the worker echoes on its reply,
// so late replies can never satisfy a different call.

// RequestType enumerates the requests the worker understands.
type RequestType string

const (
	RequestInit    RequestType = "init"
	RequestInstall RequestType = "install"
	RequestRun     RequestType = "run"
)

// ReplyType enumerates the replies the worker sends back.
type ReplyType string

const (
	ReplyReady   ReplyType = "ready"
	ReplySuccess ReplyType = "success"
	ReplyResult  ReplyType = "result"
	ReplyError   ReplyType = "error"
)

// SeedFile is one virtual file materialised into the worker's scratch
// directory before a run.
type SeedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Request is a single message to the worker.
type Request struct {
	ID          string      `json:"id"`
	Type        RequestType `json:"type"`
	Code        string      `json:"code,omitempty"`
	Files       []SeedFile  `json:"files,omitempty"`
	PackageName string      `json:"packageName,omitempty"`
}

// Reply is a single message from the worker. Exactly one of the
// payload groups is meaningful depending on Type.
type Reply struct {
	ID            string    `json:"id"`
	Type          ReplyType `json:"type"`
	Stdout        string    `json:"stdout,omitempty"`
	Stderr        string    `json:"stderr,omitempty"`
	ExecutionTime float64   `json:"executionTime,omitempty"` // milliseconds
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Transport moves requests and replies between the host and one worker
// instance. Implementations own the worker's lifetime; closing the
// transport must also close the replies channel.
type Transport interface {
	Send(req Request) error
	Replies() <-chan Reply
	Close() error
}
