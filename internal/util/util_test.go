package util

import (
	"bytes"
	"learnhub_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "a@example.com", Role: model.Admin}
	user.ID = 42

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.True(t, claims.IsAdmin())

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}

func TestClaimsIsAdminNil(t *testing.T) {
	var c *Claims
	assert.False(t, c.IsAdmin())
}

func TestParseProbeDuration(t *testing.T) {
	seconds, err := parseProbeDuration(`{"format":{"duration":"61.200000"}}`)
	require.NoError(t, err)
	assert.Equal(t, 62, seconds)

	_, err = parseProbeDuration(`{"format":{}}`)
	assert.Error(t, err)

	_, err = parseProbeDuration(`not json`)
	assert.Error(t, err)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3))
	assert.Equal(t, 50.0, Round2(50))
	assert.Equal(t, 33.33, Round2(100.0/3))
}

func TestValidateMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	mime, err := ValidateMimeType(bytes.NewReader(png), AllowedUploadTypes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.True(t, IsImage(mime))

	_, err = ValidateMimeType(bytes.NewReader([]byte("#!/bin/sh\necho hi")), []string{"image/"})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	assert.True(t, HasVideoExtension("lesson.MP4"))
	assert.False(t, HasVideoExtension("notes.txt"))
}
