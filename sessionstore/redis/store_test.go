package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/sessionkit/core/session"
)

func TestKeyAndKeyPatternAndIdFromKeyRoundTrip(t *testing.T) {
	s := &Store{cfg: DefaultConfig(), sctx: session.Context{ContextPath: "/app", VHost: "example.com"}}

	key := s.key("abc123")
	assert.Equal(t, "sessionkit:example_com:_app:abc123", key)

	pattern := s.keyPattern()
	assert.Equal(t, "sessionkit:example_com:_app:*", pattern)

	assert.Equal(t, "abc123", s.idFromKey(key))
}

func TestParseInt64(t *testing.T) {
	assert.Equal(t, int64(42), parseInt64("42"))
	assert.Equal(t, int64(0), parseInt64(""))
	assert.Equal(t, int64(0), parseInt64("not-a-number"))
}
