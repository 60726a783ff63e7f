package call

import (
	"sync"

	"github.com/voxprep/voxprep/internal/models"
)

// TranscriptAggregator folds incremental transcript events into an ordered
// turn log. Final segments append Turns in delivery order; interim partials
// only replace the transient last-heard value and are never persisted.
// Repeated identical finals append repeated Turns: deduplication is the voice
// engine's responsibility, not ours.
type TranscriptAggregator struct {
	mu        sync.RWMutex
	turns     []models.Turn
	lastHeard string
}

func NewTranscriptAggregator() *TranscriptAggregator {
	return &TranscriptAggregator{}
}

func (a *TranscriptAggregator) OnPartial(text string) {
	a.mu.Lock()
	a.lastHeard = text
	a.mu.Unlock()
}

func (a *TranscriptAggregator) OnFinal(speaker models.Speaker, text string) {
	a.mu.Lock()
	a.lastHeard = text
	a.turns = append(a.turns, models.Turn{Speaker: speaker, Text: text})
	a.mu.Unlock()
}

// Turns returns a copy of the ordered turn log.
func (a *TranscriptAggregator) Turns() []models.Turn {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

// LastHeard is the most recent utterance, final or interim. Live display only.
func (a *TranscriptAggregator) LastHeard() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastHeard
}

func (a *TranscriptAggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.turns)
}
