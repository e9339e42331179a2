package core

// Frame is a raw payload pushed to a client.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	// TrySendBinary queues a binary payload (preview frames).
	TrySendBinary(Frame) error
	Close()
}
