package metatasks

import "time"

// Config holds configuration for the Engine.
type Config struct {
	// BookingTimeout bounds the synchronous booking-availability check.
	// A check that does not answer within this window is treated as
	// unavailable (fail-closed).
	BookingTimeout time.Duration

	// HistoryPageSize is the default page size for history listings.
	HistoryPageSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BookingTimeout:  5 * time.Second,
		HistoryPageSize: 100,
	}
}
