package notify

import "context"

// Channel delivers one alert over one transport.
//
// Send must honor ctx; the engine wraps every call in a timeout and treats a
// deadline the same as a transport error. Implementations are used from
// multiple workers and must be safe for concurrent Send.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
