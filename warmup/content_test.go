package warmup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateContentTagsNewMessages(t *testing.T) {
	rng := &scriptedRand{}
	content := GenerateContent(rng, "1a2b3c4d", false, "", "")

	assert.True(t, strings.HasPrefix(content.Subject, "WARMUP-1a2b3c4d: "))
	assert.True(t, IsWarmupSubject(content.Subject))
	assert.NotEmpty(t, content.BodyHTML)
	assert.NotEmpty(t, content.BodyText)
	assert.NotContains(t, content.BodyText, "<p>")
}

func TestGenerateContentReply(t *testing.T) {
	rng := &scriptedRand{}
	content := GenerateContent(rng, "deadbeef", true, "WARMUP-1a2b3c4d: Quick update", "<p>original body</p>")

	assert.Equal(t, "Re: WARMUP-1a2b3c4d: Quick update", content.Subject)
	assert.True(t, IsWarmupSubject(content.Subject))
	assert.NotEmpty(t, content.BodyHTML)
	assert.NotContains(t, content.BodyText, "<p>")
}

func TestGenerateContentReplyFallsBackWithoutOriginal(t *testing.T) {
	rng := &scriptedRand{}

	// A reply request with no original subject or body degrades to a fresh
	// tagged message instead of producing an empty "Re: ".
	content := GenerateContent(rng, "cafe0123", true, "", "")
	assert.True(t, strings.HasPrefix(content.Subject, "WARMUP-cafe0123: "))

	content = GenerateContent(rng, "cafe0123", true, "WARMUP-ab: subject", "")
	assert.True(t, strings.HasPrefix(content.Subject, "WARMUP-cafe0123: "))
}

func TestNewTagID(t *testing.T) {
	id := NewTagID()
	assert.Len(t, id, 8)
	assert.True(t, IsWarmupSubject(TagMarker+id+": hello"))
}

func TestIsWarmupSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    bool
	}{
		{"WARMUP-1a2b3c4d: Quick question", true},
		{"Re: WARMUP-1a2b3c4d: Quick question", true},
		{"Fwd: Re: WARMUP-00ff00ff: nested", true},
		{"WARMUP-abc:", true},
		{"WARMUP-: missing id", false},
		{"WARMUP-1A2B3C4D: uppercase hex", false},
		{"warmup-1a2b3c4d: lowercase marker", false},
		{"WARMUP-1a2b3c4d missing colon", false},
		{"An ordinary subject", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.subject, func(t *testing.T) {
			assert.Equal(t, tc.want, IsWarmupSubject(tc.subject))
		})
	}
}
