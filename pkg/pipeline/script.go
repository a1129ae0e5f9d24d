package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourgen/pkg/llm"
	"tourgen/pkg/model"
	"tourgen/pkg/prompt"
	"tourgen/pkg/queue"
	"tourgen/pkg/storage"
)

// ScriptGenerator is the second stage: one completion call per record, text
// stored verbatim.
type ScriptGenerator struct {
	provider llm.Provider
	store    storage.ObjectStore
	urls     storage.URLs
}

// NewScriptGenerator creates the script stage.
func NewScriptGenerator(provider llm.Provider, os storage.ObjectStore, urls storage.URLs) *ScriptGenerator {
	return &ScriptGenerator{provider: provider, store: os, urls: urls}
}

func (s *ScriptGenerator) Name() string      { return "script-generation" }
func (s *ScriptGenerator) NextQueue() string { return queue.QueueAudioGeneration }

func (s *ScriptGenerator) Done(rec *model.GenerationRecord) bool {
	return rec.Script != nil
}

func (s *ScriptGenerator) Work(ctx context.Context, rec *model.GenerationRecord) error {
	system, user := prompt.BuildScriptPrompt(rec.PlaceInfo, rec.TourType)
	text, err := s.provider.Complete(ctx, llm.CompletionRequest{System: system, User: user})
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("completion returned an empty script")
	}

	key := storage.ScriptKey(rec.PlaceID)
	if err := s.store.Put(ctx, key, strings.NewReader(text), "text/plain"); err != nil {
		return fmt.Errorf("failed to store script: %w", err)
	}

	rec.Script = &model.Script{
		ScriptID:    uuid.NewString(),
		PlaceID:     rec.PlaceID,
		PlaceName:   rec.PlaceInfo.Name,
		TourType:    rec.TourType,
		ModelInfo:   s.provider.Info(),
		StorageURL:  s.urls.ObjectURL(key),
		CDNURL:      s.urls.CDNURL(key),
		GeneratedAt: time.Now().UTC(),
	}
	return nil
}
