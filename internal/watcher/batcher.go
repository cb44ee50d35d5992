package watcher

// Phase is the batcher's state.
type Phase int

const (
	// Idle flushes pending changes on the first quiet tick.
	Idle Phase = iota
	// ThemeUpdateInProgress holds changes until the theme lock is released.
	ThemeUpdateInProgress
)

func (p Phase) String() string {
	if p == ThemeUpdateInProgress {
		return "theme-update"
	}
	return "idle"
}

// Batcher accumulates changes and decides when to act on them. A tick is
// Begin, followed by Add with the events the tick observed.
type Batcher struct {
	phase   Phase
	pending []string
}

// Phase returns the current phase.
func (b *Batcher) Phase() Phase {
	return b.phase
}

// Pending returns the number of changes waiting to be flushed.
func (b *Batcher) Pending() int {
	return len(b.pending)
}

// Begin starts a tick. A lock that appears while idle starts a theme
// update, discarding anything pending from before it.
func (b *Batcher) Begin(lockActive bool) {
	if lockActive && b.phase == Idle {
		b.phase = ThemeUpdateInProgress
		b.pending = nil
	}
}

// Add records the tick's events and returns the de-duplicated batch to act
// on, or nil. A batch is released only on a tick without new events and
// while no theme update is running.
func (b *Batcher) Add(events []string, lockActive bool) []string {
	b.pending = append(b.pending, events...)

	if !lockActive && b.phase == ThemeUpdateInProgress {
		b.phase = Idle
	}
	if b.phase == ThemeUpdateInProgress {
		return nil
	}
	if len(b.pending) == 0 || len(events) > 0 {
		return nil
	}

	seen := make(map[string]bool, len(b.pending))
	var batch []string
	for _, p := range b.pending {
		if !seen[p] {
			seen[p] = true
			batch = append(batch, p)
		}
	}
	b.pending = nil
	return batch
}
