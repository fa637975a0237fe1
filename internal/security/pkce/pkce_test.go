package pkce

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestGenerateChallenge_RFC7636Vector(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	assert.Equal(t, want, GenerateChallenge(verifier))
	// determinista
	assert.Equal(t, GenerateChallenge(verifier), GenerateChallenge(verifier))
}

func TestGenerateVerifier(t *testing.T) {
	v, err := GenerateVerifier()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(v), 43)
	assert.Regexp(t, urlSafe, v)
	assert.NotContains(t, v, "=")

	other, err := GenerateVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, v, other)
}

func TestStateIndependentOfVerifier(t *testing.T) {
	m, err := New(true)
	require.NoError(t, err)
	assert.NotEqual(t, m.Verifier, m.State)
	assert.Regexp(t, urlSafe, m.State)
	assert.True(t, VerifyChallenge(m.Verifier, m.Challenge))
}

func TestNewWithoutPKCE(t *testing.T) {
	m, err := New(false)
	require.NoError(t, err)
	assert.NotEmpty(t, m.State)
	assert.Empty(t, m.Verifier)
	assert.Empty(t, m.Challenge)
}

func TestVerifyChallenge(t *testing.T) {
	assert.True(t, VerifyChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk", "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"))
	assert.False(t, VerifyChallenge("other", "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"))
	assert.False(t, VerifyChallenge("", ""))
}

func TestEntropyFailureNoFallback(t *testing.T) {
	prev := randReader
	randReader = failingReader{}
	defer func() { randReader = prev }()

	_, err := GenerateVerifier()
	assert.ErrorIs(t, err, ErrEntropySourceUnavailable)

	_, err = GenerateState()
	assert.ErrorIs(t, err, ErrEntropySourceUnavailable)

	_, err = New(true)
	assert.ErrorIs(t, err, ErrEntropySourceUnavailable)
}
