package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_Expired(t *testing.T) {
	now := time.Now()
	tok := &Token{CreatedAt: now.Add(-2 * time.Hour)}

	assert.False(t, tok.Expired(0, now))
	assert.False(t, tok.Expired(3*time.Hour, now))
	assert.True(t, tok.Expired(time.Hour, now))
}
