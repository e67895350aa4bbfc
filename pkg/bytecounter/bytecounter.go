// Package bytecounter contains a io.ReadWriter wrapper that counts transferred bytes.
package bytecounter

import (
	"io"
	"sync/atomic"
)

// ByteCounter is a io.ReadWriter wrapper that counts transferred bytes.
type ByteCounter struct {
	// underlying stream.
	RW io.ReadWriter

	// (optional) called after every successful read.
	OnRead func(n int)

	// (optional) called after every successful write.
	OnWrite func(n int)

	received atomic.Uint64
	sent     atomic.Uint64
}

// Read implements io.Reader.
func (bc *ByteCounter) Read(p []byte) (int, error) {
	n, err := bc.RW.Read(p)
	if n > 0 {
		bc.received.Add(uint64(n))
		if bc.OnRead != nil {
			bc.OnRead(n)
		}
	}
	return n, err
}

// Write implements io.Writer.
func (bc *ByteCounter) Write(p []byte) (int, error) {
	n, err := bc.RW.Write(p)
	if n > 0 {
		bc.sent.Add(uint64(n))
		if bc.OnWrite != nil {
			bc.OnWrite(n)
		}
	}
	return n, err
}

// BytesReceived returns the number of bytes received.
func (bc *ByteCounter) BytesReceived() uint64 {
	return bc.received.Load()
}

// BytesSent returns the number of bytes sent.
func (bc *ByteCounter) BytesSent() uint64 {
	return bc.sent.Load()
}
