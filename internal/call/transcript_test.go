package call_test

import (
	"testing"

	"github.com/voxprep/voxprep/internal/call"
	"github.com/voxprep/voxprep/internal/models"
)

func TestAggregatorFinalsAppendInOrder(t *testing.T) {
	agg := call.NewTranscriptAggregator()

	agg.OnFinal(models.SpeakerAssistant, "Tell me about yourself.")
	agg.OnFinal(models.SpeakerUser, "I am a backend engineer.")
	agg.OnFinal(models.SpeakerAssistant, "What do you work with?")

	turns := agg.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Speaker != models.SpeakerAssistant || turns[0].Text != "Tell me about yourself." {
		t.Fatalf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Speaker != models.SpeakerUser {
		t.Fatalf("unexpected second speaker: %s", turns[1].Speaker)
	}
	if turns[2].Text != "What do you work with?" {
		t.Fatalf("unexpected third turn text: %s", turns[2].Text)
	}
}

func TestAggregatorPartialsAreNotPersisted(t *testing.T) {
	agg := call.NewTranscriptAggregator()

	agg.OnPartial("I am")
	agg.OnPartial("I am a back")
	if agg.Len() != 0 {
		t.Fatalf("partials must not append turns, got %d", agg.Len())
	}
	if got := agg.LastHeard(); got != "I am a back" {
		t.Fatalf("last heard should track partials, got %q", got)
	}

	agg.OnFinal(models.SpeakerUser, "I am a backend engineer.")
	if agg.Len() != 1 {
		t.Fatalf("expected 1 turn after final, got %d", agg.Len())
	}
	if got := agg.LastHeard(); got != "I am a backend engineer." {
		t.Fatalf("last heard should track finals too, got %q", got)
	}
}

func TestAggregatorTurnsReturnsCopy(t *testing.T) {
	agg := call.NewTranscriptAggregator()
	agg.OnFinal(models.SpeakerUser, "original")

	turns := agg.Turns()
	turns[0].Text = "mutated"

	if got := agg.Turns()[0].Text; got != "original" {
		t.Fatalf("internal log mutated through returned slice: %q", got)
	}
}
