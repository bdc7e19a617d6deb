package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "exports/file.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	jobID, path, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "exports/file.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("job-1", "exports/file.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "exports/file.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	require.Error(t, err)
}

func TestSignedURLSignerWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "exports/file.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("different", time.Hour)
	_, _, _, err = other.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	for _, token := range []string{"", "a.b", strings.Repeat(".", 3)} {
		_, _, _, err := signer.Parse(token)
		require.Error(t, err, token)
	}
}

func TestSignedURLSignerRequiresInputs(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	_, _, err := signer.Generate("", "exports/file.csv")
	require.Error(t, err)
	_, _, err = signer.Generate("job-1", "")
	require.Error(t, err)

	empty := NewSignedURLSigner("", time.Hour)
	_, _, err = empty.Generate("job-1", "exports/file.csv")
	require.Error(t, err)
}
