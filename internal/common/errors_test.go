package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Missing("spaceId"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("bind: %w", Missing("text")), http.StatusBadRequest},
		{"not found", &NotFoundError{Kind: "space", ID: "s1"}, http.StatusNotFound},
		{"upstream", &UpstreamError{Provider: "heygen", StatusCode: 502, Detail: "bad gateway"}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFor(tc.err))
		})
	}
}

func TestMessageFor_HidesUnclassified(t *testing.T) {
	assert.Equal(t, "internal error", MessageFor(errors.New("dsn password=secret")))
	assert.Equal(t, "spaceId: is required", MessageFor(Missing("spaceId")))
	assert.Contains(t, MessageFor(&UpstreamError{Provider: "deepgram", Detail: "no text"}), "deepgram")
}
