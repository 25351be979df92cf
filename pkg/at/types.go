package at

import "context"

// Socket is an open AT command channel.
type Socket interface {
	// Send sends one command line, e.g. "AT+CMEE=1".
	Send(cmd string) error
	// Recv receives at most max bytes of the response to the last command.
	Recv(max int) ([]byte, error)
	// Close releases the channel.
	Close() error
}

// Dialer opens Sockets.
type Dialer interface {
	Dial(ctx context.Context) (Socket, error)
}

// DialerFunc is the func form of Dialer.
type DialerFunc func(ctx context.Context) (Socket, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Socket, error) {
	return f(ctx)
}
