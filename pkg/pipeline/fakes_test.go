package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"tourgen/pkg/llm"
	"tourgen/pkg/model"
	"tourgen/pkg/places"
)

type fakePlaceSource struct {
	info         model.PlaceInfo
	refs         []places.PhotoRef
	failPhotoIdx map[int]bool

	detailCalls atomic.Int64
	photoCalls  atomic.Int64
}

func (f *fakePlaceSource) GetPlaceDetails(ctx context.Context, placeID string) (*model.PlaceInfo, []places.PhotoRef, error) {
	f.detailCalls.Add(1)
	info := f.info
	info.PlaceID = placeID
	return &info, f.refs, nil
}

func (f *fakePlaceSource) GetPhoto(ctx context.Context, ref places.PhotoRef, maxW, maxH int) ([]byte, error) {
	n := f.photoCalls.Add(1)
	for idx, r := range f.refs {
		if r.Name == ref.Name && f.failPhotoIdx[idx] {
			return nil, fmt.Errorf("photo %d unavailable", idx)
		}
	}
	return []byte(fmt.Sprintf("jpeg-%d", n)), nil
}

type fakeLLM struct {
	text  string
	err   error
	calls atomic.Int64
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeLLM) Info() model.ModelInfo {
	return model.ModelInfo{Provider: "fake", Model: "fake-1"}
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }

type fakeTTS struct {
	audio string
	err   error
	calls atomic.Int64
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.audio)), nil
}

func (f *fakeTTS) Info() model.ModelInfo {
	return model.ModelInfo{Provider: "fake", Voice: "Amy", Engine: "neural"}
}
