package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	name string
	sent []string
	err  error
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, localID, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, localID+"="+text)
	return nil
}

func TestSplit(t *testing.T) {
	ch, local, ok := Split(Identity("telegram", "-100:42"))
	require.True(t, ok)
	assert.Equal(t, "telegram", ch)
	assert.Equal(t, "-100:42", local)

	for _, bad := range []string{"", "telegram", ":42", "telegram:"} {
		_, _, ok := Split(bad)
		assert.False(t, ok, bad)
	}
}

func TestRouter_Send(t *testing.T) {
	tg := &stubChannel{name: "telegram"}
	web := &stubChannel{name: "webchat"}
	r := NewRouter(tg, web)
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, "telegram:1", "hello"))
	require.NoError(t, r.Send(ctx, "webchat:abc", "hi"))

	assert.Equal(t, []string{"1=hello"}, tg.sent)
	assert.Equal(t, []string{"abc=hi"}, web.sent)
}

func TestRouter_SendErrors(t *testing.T) {
	failing := &stubChannel{name: "telegram", err: errors.New("boom")}
	r := NewRouter(failing)
	ctx := context.Background()

	assert.ErrorContains(t, r.Send(ctx, "telegram:1", "x"), "boom")
	assert.Error(t, r.Send(ctx, "sms:1", "x"))
	assert.Error(t, r.Send(ctx, "nochannel", "x"))
}
