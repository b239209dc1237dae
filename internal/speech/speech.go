// Package speech converts text to audio through interchangeable hosted
// backends. Callers hold a Synthesizer and never branch on the provider.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/suPer8Hu/community-chat/internal/common"
)

// ErrUnknownVoice is returned when an explicitly requested voice is not in the
// configured set.
var ErrUnknownVoice = &common.ValidationError{Field: "voiceId", Reason: "unknown voice"}

type Audio struct {
	Data        []byte
	ContentType string
}

type Synthesizer interface {
	Name() string
	// Synthesize renders text with voiceID; an empty voiceID selects the default voice.
	Synthesize(ctx context.Context, text, voiceID string) (*Audio, error)
}

// VoiceSet maps caller-facing voice aliases to provider voice ids.
type VoiceSet struct {
	Default string
	Voices  map[string]string
}

// Resolve returns the provider voice id. Only the unset case falls back to
// the default; an explicit unknown id is an error.
func (v VoiceSet) Resolve(voiceID string) (string, error) {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		if v.Default == "" {
			return "", errors.New("speech: no default voice configured")
		}
		return v.Default, nil
	}
	if id, ok := v.Voices[voiceID]; ok {
		return id, nil
	}
	for _, id := range v.Voices {
		if id == voiceID {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVoice, voiceID)
}

type Registry struct {
	mu     sync.RWMutex
	byName map[string]Synthesizer
}

func NewRegistry(synths ...Synthesizer) *Registry {
	r := &Registry{byName: make(map[string]Synthesizer)}
	for _, s := range synths {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(s Synthesizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[strings.ToLower(s.Name())] = s
}

func (r *Registry) Get(name string) (Synthesizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown tts provider: %s", name)
	}
	return s, nil
}
