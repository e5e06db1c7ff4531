package guardrail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pocketkart/pocketbot/internal/core"
)

type stubModerator struct {
	res core.ModerationResult
	err error
}

func (s *stubModerator) Moderate(_ context.Context, _ string) (core.ModerationResult, error) {
	return s.res, s.err
}

func TestCheckNilModeratorAllows(t *testing.T) {
	g := New(nil)
	v := g.Check(context.Background(), "anything at all")
	assert.True(t, v.Allowed)
	assert.Empty(t, v.Reply)
}

func TestCheckFlaggedBlocks(t *testing.T) {
	g := New(&stubModerator{res: core.ModerationResult{
		Flagged:    true,
		Categories: map[string]bool{"violence": true, "self-harm": false},
	}})
	v := g.Check(context.Background(), "bad message")
	assert.False(t, v.Allowed)
	assert.Equal(t, SafeReply, v.Reply)
}

func TestCheckErrorFailsOpen(t *testing.T) {
	g := New(&stubModerator{err: errors.New("upstream 503")})
	v := g.Check(context.Background(), "hello")
	assert.True(t, v.Allowed)
}

func TestCheckCleanAllows(t *testing.T) {
	g := New(&stubModerator{})
	v := g.Check(context.Background(), "where is my order")
	assert.True(t, v.Allowed)
}
