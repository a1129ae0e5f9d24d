// Package speech implements tts.Provider over an HTTP speech-synthesis API
// speaking the cognitive-services SSML protocol.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tourgen/pkg/config"
	"tourgen/pkg/model"
	"tourgen/pkg/tracker"
	"tourgen/pkg/tts"
)

const outputFormat = "audio-24khz-160kbitrate-mono-mp3"

// Provider implements tts.Provider for the speech service.
type Provider struct {
	key      string
	voice    string
	engine   string
	language string
	client   *http.Client
	url      string
	tracker  *tracker.Tracker
}

// NewProvider creates a speech provider from config. BaseURL overrides the
// region-derived endpoint, for tests.
func NewProvider(cfg config.TTSConfig, t *tracker.Tracker) *Provider {
	u := cfg.BaseURL
	if u == "" {
		u = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "Amy"
	}
	engine := cfg.Engine
	if engine == "" {
		engine = "neural"
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	return &Provider{
		key:      cfg.Key,
		voice:    voice,
		engine:   engine,
		language: language,
		client:   &http.Client{Timeout: 120 * time.Second},
		url:      u,
		tracker:  t,
	}
}

func (p *Provider) Info() model.ModelInfo {
	return model.ModelInfo{Provider: "speech", Voice: p.voice, Engine: p.engine}
}

// Synthesize sends the text as SSML and streams the mp3 response back.
func (p *Provider) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if p.key == "" {
		return nil, tts.NewFatalError(0, "speech api key is missing")
	}

	ssml := p.buildSSML(text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBufferString(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	req.Header.Set("User-Agent", "tourgen")

	resp, err := p.client.Do(req)
	if err != nil {
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("speech")
		}
		return nil, fmt.Errorf("api request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		bodyStr := strings.TrimSpace(string(body))
		if rerr != nil || bodyStr == "" {
			bodyStr = "[empty body]"
		}
		if p.tracker != nil {
			p.tracker.TrackAPIFailure("speech")
		}
		return nil, tts.NewFatalError(resp.StatusCode,
			fmt.Sprintf("speech api error (status %d): %s", resp.StatusCode, bodyStr))
	}

	if p.tracker != nil {
		p.tracker.TrackAPISuccess("speech")
	}
	return resp.Body, nil
}

func (p *Provider) buildSSML(text string) string {
	return fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>`,
		p.language, p.voiceName(), escapeText(text))
}

// voiceName derives the full service voice name from the configured short
// voice and engine. Fully qualified names pass through unchanged.
func (p *Provider) voiceName() string {
	if strings.Contains(p.voice, "-") {
		return p.voice
	}
	suffix := ""
	switch p.engine {
	case "neural":
		suffix = "Neural"
	case "generative":
		suffix = "Generative"
	}
	return p.language + "-" + p.voice + suffix
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Scripts are plain prose; escape so stray characters cannot break the SSML.
func escapeText(text string) string {
	return textEscaper.Replace(text)
}
