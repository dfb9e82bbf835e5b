package protocol

// SentinelBase seeds every sentinel counter. The first command carries
// SentinelBase+1.
const SentinelBase int32 = 0x5CA1AB1E

// Sentinel is the per-endpoint end-of-message counter.
//
// Each Master and Worker owns one, so independent protocol instances in the
// same process never share state.
type Sentinel struct {
	value int32
}

// NewSentinel returns a counter at SentinelBase.
func NewSentinel() *Sentinel {
	return &Sentinel{value: SentinelBase}
}

// Next advances the counter and returns the value for the next command.
// The counter wraps around on overflow.
func (s *Sentinel) Next() int32 {
	s.value++
	return s.value
}

// Current returns the value of the last command, or SentinelBase before any.
func (s *Sentinel) Current() int32 {
	return s.value
}
