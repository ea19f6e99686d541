package sock

import "net"

// Frame is the unit moved through the pump: the bytes one underlying
// I/O operation produced (one datagram, one stream read, one server
// client message).  Frames are never split or merged.
type Frame struct {
	// Data is the opaque payload.  The slice is owned by the frame;
	// endpoints copy out of any reused read buffer before returning.
	Data []byte

	// From identifies the originating peer, set only on tcp-server
	// fan-in frames.
	From net.Addr
}

// Empty reports whether the frame carries no bytes.  Empty frames move
// through the pump but trigger no trace output and no network I/O.
func (f Frame) Empty() bool { return len(f.Data) == 0 }
