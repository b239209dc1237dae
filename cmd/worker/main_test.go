package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/community-chat/internal/common"
	"github.com/suPer8Hu/community-chat/internal/responder"
	"github.com/suPer8Hu/community-chat/internal/store/rabbitmq"
	"go.uber.org/zap"
)

type stubResponder struct {
	got []responder.IncomingMessage
	err error
}

func (s *stubResponder) HandleIncomingMessage(_ context.Context, msg responder.IncomingMessage, _ responder.Options) (*responder.Result, error) {
	s.got = append(s.got, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &responder.Result{Success: true, Status: responder.StatusCompleted}, nil
}

func TestJobHandler(t *testing.T) {
	ctx := context.Background()
	stub := &stubResponder{}
	h := jobHandler(stub, zap.NewNop())

	err := h(ctx, []byte("{not json"))
	assert.True(t, errors.Is(err, rabbitmq.ErrPermanent))

	err = h(ctx, []byte(`{"space_id":"s1"}`))
	assert.True(t, errors.Is(err, rabbitmq.ErrPermanent))
	assert.Empty(t, stub.got)

	body, err := json.Marshal(rabbitmq.AutoResponseJob{SpaceID: "s1", ChannelID: "c1", Content: "hi", SenderID: "u1"})
	require.NoError(t, err)
	require.NoError(t, h(ctx, body))
	require.Len(t, stub.got, 1)
	assert.Equal(t, "u1", stub.got[0].SenderID)

	stub.err = &common.UpstreamError{Provider: "heygen", Detail: "boom"}
	err = h(ctx, body)
	require.Error(t, err)
	assert.False(t, errors.Is(err, rabbitmq.ErrPermanent))

	stub.err = common.Missing("spaceId")
	assert.True(t, errors.Is(h(ctx, body), rabbitmq.ErrPermanent))
}
