package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/models"
	"github.com/voxprep/voxprep/internal/utils"
)

// hitCache serves a single canned value and records writes.
type hitCache struct {
	stored  map[string]any
	setKeys []string
}

func (c *hitCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.stored[key]
	if !ok {
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *hitCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	c.setKeys = append(c.setKeys, key)
	return nil
}

func (c *hitCache) Del(ctx context.Context, keys ...string) error { return nil }

func TestCreateDraftDefaults(t *testing.T) {
	ivRepo := &fakeInterviewRepo{}
	svc := NewInterviewService(ivRepo, &fakeFeedbackRepo{}, nil)

	id, err := svc.CreateDraft(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("CreateDraft err: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated interview id")
	}

	iv := ivRepo.created
	if iv == nil {
		t.Fatal("draft not persisted")
	}
	if iv.InterviewID != id {
		t.Fatalf("returned id %q does not match stored %q", id, iv.InterviewID)
	}
	if iv.Mode != models.ModeGenerate {
		t.Fatalf("draft mode: %s", iv.Mode)
	}
	if iv.Level != "unknown" || iv.Focus != "mixed" {
		t.Fatalf("draft defaults: level=%q focus=%q", iv.Level, iv.Focus)
	}
	if iv.TechStack == nil || iv.Questions == nil || iv.Transcript == nil {
		t.Fatal("draft slices must be empty, not nil")
	}
	if iv.Finalized {
		t.Fatal("drafts start unfinalized")
	}
}

func TestCreateDraftRequiresUser(t *testing.T) {
	svc := NewInterviewService(&fakeInterviewRepo{}, &fakeFeedbackRepo{}, nil)

	if _, err := svc.CreateDraft(context.Background(), ""); utils.CodeOf(err) != utils.CodeInvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestGetCacheHitSkipsMongo(t *testing.T) {
	ivRepo := &fakeInterviewRepo{}
	c := &hitCache{stored: map[string]any{
		"interview:iv-1": models.Interview{InterviewID: "iv-1", Role: "Backend"},
	}}
	svc := NewInterviewService(ivRepo, &fakeFeedbackRepo{}, c)

	iv, err := svc.Get(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if iv.Role != "Backend" {
		t.Fatalf("cached document not returned: %+v", iv)
	}
	if ivRepo.getCalls != 0 {
		t.Fatalf("cache hit must not touch mongo, calls=%d", ivRepo.getCalls)
	}
}

func TestGetCacheMissPopulatesCache(t *testing.T) {
	ivRepo := &fakeInterviewRepo{getResult: &models.Interview{InterviewID: "iv-1"}}
	c := &hitCache{stored: map[string]any{}}
	svc := NewInterviewService(ivRepo, &fakeFeedbackRepo{}, c)

	if _, err := svc.Get(context.Background(), "iv-1"); err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if ivRepo.getCalls != 1 {
		t.Fatalf("expected one mongo read, got %d", ivRepo.getCalls)
	}
	if len(c.setKeys) != 1 || c.setKeys[0] != "interview:iv-1" {
		t.Fatalf("cache not populated: %v", c.setKeys)
	}
}

func TestGetMissingInterview(t *testing.T) {
	svc := NewInterviewService(&fakeInterviewRepo{}, &fakeFeedbackRepo{}, nil)

	_, err := svc.Get(context.Background(), "iv-missing")
	if utils.CodeOf(err) != utils.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestGetFeedbackMissing(t *testing.T) {
	svc := NewInterviewService(&fakeInterviewRepo{}, &fakeFeedbackRepo{}, nil)

	_, err := svc.GetFeedback(context.Background(), "iv-1", "u-1")
	if utils.CodeOf(err) != utils.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}
