package signx

import (
	"github.com/MrEthical07/signx/internal/flows"
	"github.com/MrEthical07/signx/internal/poll"
)

// sessionState is the transact session. It is only touched under Engine.mu.
//
// hash and nonce are both set or both empty. cycle is the one poll cycle the session
// owns; handlers of any other cycle, or of an earlier epoch, are ignored.
type sessionState struct {
	hash     string
	nonce    string
	sequence int
	active   string
	epoch    uint64
	cycle    *poll.Cycle
	// started is set once SIGN_X_TRANSACT_SESSION_STARTED was emitted; only started
	// sessions emit SIGN_X_TRANSACT_SESSION_ENDED.
	started bool
	// halted is set by StopPolling with KeepSession; the next successful add resumes
	// polling.
	halted bool
}

func (s *sessionState) present() bool {
	return s.hash != ""
}

// raise moves sequence forward to seq; sequence never decreases.
func (s *sessionState) raise(seq int) {
	if seq > s.sequence {
		s.sequence = seq
	}
}

// advance records a newly active transaction. Without a declared sequence the session
// moves to the next one.
func (s *sessionState) advance(a *flows.ActiveTransaction) {
	s.active = a.Hash
	if a.Sequence != nil {
		s.raise(*a.Sequence)
		return
	}
	s.sequence++
}

// report records the active transaction the mediator reported for the session without
// implying a step: an undeclared sequence leaves the counter where it is.
func (s *sessionState) report(a *flows.ActiveTransaction) {
	s.active = a.Hash
	if a.Sequence != nil {
		s.raise(*a.Sequence)
	}
}

func (s *sessionState) event() SessionEvent {
	ev := SessionEvent{
		SessionHash: s.hash,
		Sequence:    s.sequence,
	}
	if s.active != "" {
		ev.Active = &ActiveTransaction{Hash: s.active, Sequence: s.sequence}
	}
	return ev
}

func (s *sessionState) info() SessionInfo {
	return SessionInfo{
		SessionHash:       s.hash,
		Sequence:          s.sequence,
		ActiveTransaction: s.active,
		Polling:           s.cycle != nil,
	}
}

func publicActive(a *flows.ActiveTransaction) *ActiveTransaction {
	if a == nil {
		return nil
	}
	out := &ActiveTransaction{Hash: a.Hash}
	if a.Sequence != nil {
		out.Sequence = *a.Sequence
	}
	return out
}
