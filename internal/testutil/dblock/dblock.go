package dblock

import (
	"net"
	"time"
)

// Serializes test packages that share one database. Whoever binds the port
// holds the lock.
const lockAddr = "127.0.0.1:45433"

func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
