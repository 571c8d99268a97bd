package port

import "time"

// SystemClock wraps time.Now to satisfy Clock with the host's wall clock.
type SystemClock struct{}

func (SystemClock) TimeSeconds() uint32 {
	return uint32(time.Now().Unix())
}

func (SystemClock) TimeMillis() uint32 {
	return uint32(time.Now().UnixMilli())
}
