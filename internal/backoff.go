package internal

import "time"

// CoAP retransmission parameters, RFC 7252 §4.8.
const (
	AckTimeout      = 2000 * time.Millisecond
	AckRandomFactor = 1.5
	MaxRetransmit   = 4
)

// RetransmitTimer computes the doubling, randomized-initial-value timeout
// sequence a Confirmable CoAP request retries on, per RFC 7252 §4.8: the
// first timeout is drawn uniformly from [AckTimeout, AckRandomFactor*AckTimeout),
// and each subsequent one doubles.
type RetransmitTimer struct {
	wait time.Duration
}

// NewRetransmitTimer picks the initial timeout using prandFrac, a value in
// [0,1) used in place of a floating-point RNG so the caller can supply one
// derived from [Prand16] on targets without math/rand.
func NewRetransmitTimer(prandFrac float64) RetransmitTimer {
	span := float64(AckTimeout) * (AckRandomFactor - 1)
	return RetransmitTimer{wait: AckTimeout + time.Duration(prandFrac*span)}
}

// Wait returns the current timeout.
func (t RetransmitTimer) Wait() time.Duration { return t.wait }

// Next doubles the timeout for the following retry.
func (t *RetransmitTimer) Next() { t.wait *= 2 }
