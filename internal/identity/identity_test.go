package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenMaker("test-secret")

	tok, err := tm.New("u1", "+1 555 0100", time.Minute)
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "+1 555 0100", c.Phone)
}

func TestParse_Rejects(t *testing.T) {
	tm := NewTokenMaker("test-secret")

	other, err := NewTokenMaker("other-secret").New("u1", "5550100", time.Minute)
	require.NoError(t, err)
	_, err = tm.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := tm.New("u1", "5550100", -time.Minute)
	require.NoError(t, err)
	_, err = tm.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noPhone, err := tm.New("u1", "", time.Minute)
	require.NoError(t, err)
	_, err = tm.Parse(noPhone)
	assert.ErrorIs(t, err, ErrNoPhone)
}

func TestSession(t *testing.T) {
	tm := NewTokenMaker("test-secret")
	s := NewSession(tm)

	_, ok := s.PhoneNumber()
	assert.False(t, ok)

	tok, err := tm.New("u1", "5550100", time.Minute)
	require.NoError(t, err)
	_, err = s.SignIn(tok)
	require.NoError(t, err)

	phone, ok := s.PhoneNumber()
	require.True(t, ok)
	assert.Equal(t, "5550100", phone)

	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, ok = s.PhoneNumber()
	assert.False(t, ok)

	s.SignOut()
	_, ok = s.PhoneNumber()
	assert.False(t, ok)
}

func TestStatic(t *testing.T) {
	phone, ok := Static("5550100").PhoneNumber()
	assert.True(t, ok)
	assert.Equal(t, "5550100", phone)

	_, ok = Static("").PhoneNumber()
	assert.False(t, ok)
}
