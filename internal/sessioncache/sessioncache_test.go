package sessioncache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/internal/sessioncache"
)

func TestCache_MatchRequiresExactSaltAndRounds(t *testing.T) {
	c := sessioncache.New()
	kek := cipher.NewKeyHandle(make([]byte, 32), false, cipher.UsageWrap, cipher.UsageUnwrap)
	salt := []byte("0123456789abcdef")

	_, ok := c.Match(salt, 20)
	assert.False(t, ok)

	c.Set(kek, salt, 20)

	got, ok := c.Match(salt, 20)
	assert.True(t, ok)
	assert.Same(t, kek, got)

	_, ok = c.Match(salt, 21)
	assert.False(t, ok)

	_, ok = c.Match([]byte("fedcba9876543210"), 20)
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := sessioncache.New()
	kek := cipher.NewKeyHandle(make([]byte, 32), false)
	salt := []byte("0123456789abcdef")
	c.Set(kek, salt, 20)

	c.Clear()

	_, ok := c.Match(salt, 20)
	assert.False(t, ok)
}
