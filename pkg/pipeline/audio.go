package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"tourgen/pkg/model"
	"tourgen/pkg/storage"
	"tourgen/pkg/tts"
)

// AudioGenerator is the terminal stage: it reads the script back from
// storage, synthesizes audio, and streams the result into storage.
type AudioGenerator struct {
	provider tts.Provider
	store    storage.ObjectStore
	urls     storage.URLs
}

// NewAudioGenerator creates the audio stage.
func NewAudioGenerator(provider tts.Provider, os storage.ObjectStore, urls storage.URLs) *AudioGenerator {
	return &AudioGenerator{provider: provider, store: os, urls: urls}
}

func (a *AudioGenerator) Name() string      { return "audio-generation" }
func (a *AudioGenerator) NextQueue() string { return "" }

func (a *AudioGenerator) Done(rec *model.GenerationRecord) bool {
	return rec.Audio != nil
}

func (a *AudioGenerator) Work(ctx context.Context, rec *model.GenerationRecord) error {
	// Hard dependency: no script means synthesis cannot run. Fail before
	// contacting the collaborator.
	if rec.Script == nil {
		return fmt.Errorf("record %s/%s has no script artifact", rec.PlaceID, rec.TourType)
	}

	scriptKey, err := a.urls.KeyFromObjectURL(rec.Script.StorageURL)
	if err != nil {
		return fmt.Errorf("bad script url: %w", err)
	}
	rc, err := a.store.Get(ctx, scriptKey)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	text, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	stream, err := a.provider.Synthesize(ctx, string(text))
	if err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}
	defer stream.Close()

	audioKey := storage.AudioKey(rec.PlaceID, rec.TourType)
	if err := a.store.Put(ctx, audioKey, stream, "audio/mpeg"); err != nil {
		return fmt.Errorf("failed to store audio: %w", err)
	}

	rec.Audio = &model.Audio{
		PlaceID:     rec.PlaceID,
		ScriptID:    rec.Script.ScriptID,
		ModelInfo:   a.provider.Info(),
		StorageURL:  a.urls.ObjectURL(audioKey),
		CDNURL:      a.urls.CDNURL(audioKey),
		GeneratedAt: time.Now().UTC(),
	}
	return nil
}
