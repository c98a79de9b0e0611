package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testModerator(t *testing.T, words ...string) *Moderator {
	t.Helper()
	m, err := NewModerator(words, DefaultReplacement)
	require.NoError(t, err)
	return m
}

func TestCensor_PlainMatch(t *testing.T) {
	req := require.New(t)
	m := testModerator(t, "badword")

	req.Equal("this is a *******", m.Censor("this is a badword"))
}

func TestCensor_CaseInsensitive(t *testing.T) {
	req := require.New(t)
	m := testModerator(t, "badword")

	req.Equal("*******", m.Censor("BadWord"))
}

func TestCensor_LeetSubstitutions(t *testing.T) {
	req := require.New(t)
	m := testModerator(t, "badword")

	req.NotContains(m.Censor("b4dw0rd"), "4")
	req.Equal("*******", m.Censor("b4dw0rd"))
}

func TestCensor_InterleavedPunctuation(t *testing.T) {
	req := require.New(t)
	m := testModerator(t, "badword")

	// Punctuation inside the word is covered by the censored span.
	req.Equal("*************", m.Censor("b.a.d.w.o.r.d"))
}

func TestCensor_CleanTextUntouched(t *testing.T) {
	req := require.New(t)
	m := testModerator(t, "badword")

	in := "a perfectly fine sentence"
	req.Equal(in, m.Censor(in))
}

func TestCensor_MultipleWords(t *testing.T) {
	req := require.New(t)
	m := testModerator(t, "foo", "quux")

	out := m.Censor("foo bar quux")
	req.Equal("*** bar ****", out)
}

func TestCensor_PreservesLength(t *testing.T) {
	req := require.New(t)
	m := testModerator(t, "badword")

	in := "prefix badword suffix"
	req.Len([]rune(m.Censor(in)), len([]rune(in)))
}
