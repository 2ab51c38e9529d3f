package galprof

import "fmt"

// lockState is unlocked (zero value), locked forever, or locked for a number
// of remaining iterations.
type lockState struct {
	forever   bool
	remaining int
}

func (l lockState) locked() bool { return l.forever || l.remaining > 0 }

func (l lockState) String() string {
	switch {
	case l.forever:
		return "locked"
	case l.remaining > 0:
		return fmt.Sprintf("locked for %d iterations", l.remaining)
	default:
		return "unlocked"
	}
}

// UpdateLocked drives the lock state machine. A bool locks forever (true) or
// unlocks (false); an int n>0 locks for n iterations and n<=0 unlocks. A user
// lock set with SetUserLocked always wins. Any other type is rejected with
// ErrInvalidLockType.
func (m *Model) UpdateLocked(locked any) error {
	switch v := locked.(type) {
	case bool:
		m.lock = lockState{forever: m.userLocked || v}
	case int:
		m.setCountdown(v)
	case int32:
		m.setCountdown(int(v))
	case int64:
		m.setCountdown(int(v))
	default:
		return fmt.Errorf("model %s: %T: %w", m.name, locked, ErrInvalidLockType)
	}
	return nil
}

func (m *Model) setCountdown(n int) {
	switch {
	case m.userLocked:
		m.lock = lockState{forever: true}
	case n <= 0:
		m.lock = lockState{}
	default:
		m.lock = lockState{remaining: n}
	}
}

// SetUserLocked sets or clears the sticky user lock. This is the only way to
// release it.
func (m *Model) SetUserLocked(locked bool) {
	m.userLocked = locked
	if locked {
		m.lock = lockState{forever: true}
		return
	}
	m.lock = lockState{}
}

// Locked reports whether the model currently skips iterations.
func (m *Model) Locked() bool { return m.lock.locked() }

// UserLocked reports whether the sticky user lock is set.
func (m *Model) UserLocked() bool { return m.userLocked }

// LockRemaining is the countdown of a temporary lock, 0 otherwise.
func (m *Model) LockRemaining() int { return m.lock.remaining }

// StepIteration closes the current iteration. A countdown-locked model only
// decrements its countdown and a permanently locked one does nothing; neither
// records history. An unlocked model moves any pending loss into its history,
// advances the iteration counter and marks every pipeline stage stale.
func (m *Model) StepIteration() {
	if m.lock.locked() {
		if !m.lock.forever {
			m.setCountdown(m.lock.remaining - 1)
		}
		return
	}
	if m.loss != nil {
		m.history.Add(m.params.Snapshot(), m.loss)
		m.loss = nil
	}
	m.iteration++
	m.sampled = false
	m.convolved = false
	m.integrated = false
	m.logger.Debug("model stepped", "model", m.name, "iteration", m.iteration)
}
