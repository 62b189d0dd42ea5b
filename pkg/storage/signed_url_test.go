package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("bulletin-1", "class-1/p1/stu-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "bulletin-1", parsed.OwnerID)
	require.Equal(t, "class-1/p1/stu-1.pdf", parsed.Path)
	require.WithinDuration(t, expiresAt, parsed.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Now()
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("bulletin-1", "class-1/p1/stu-1.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("bulletin-1", "class-1/p1/stu-1.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token)
	require.Error(t, err)

	_, err = signer.Parse("bulletin-2" + token[len("bulletin-1"):])
	require.Error(t, err)

	_, err = signer.Parse("garbage")
	require.Error(t, err)
}
