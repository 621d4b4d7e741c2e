package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURI(t *testing.T) {
	t.Run("base64 audio", func(t *testing.T) {
		ct, data, err := ParseDataURI("data:audio/mpeg;base64,SUQz")
		require.NoError(t, err)
		assert.Equal(t, "audio/mpeg", ct)
		assert.Equal(t, []byte("ID3"), data)
	})

	t.Run("percent encoded text", func(t *testing.T) {
		ct, data, err := ParseDataURI("data:,hello%20world")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", ct)
		assert.Equal(t, "hello world", string(data))
	})

	t.Run("remote url", func(t *testing.T) {
		_, _, err := ParseDataURI("https://example.com/test-audio.mp3")
		assert.ErrorIs(t, err, ErrNotDataURI)
	})

	t.Run("missing comma", func(t *testing.T) {
		_, _, err := ParseDataURI("data:audio/mpeg;base64")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotDataURI)
	})

	t.Run("bad base64", func(t *testing.T) {
		_, _, err := ParseDataURI("data:audio/mpeg;base64,@@@")
		assert.Error(t, err)
	})
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".mp3", extensionFor("audio/mpeg"))
	assert.Equal(t, ".wav", extensionFor("audio/wav"))
	assert.Equal(t, ".bin", extensionFor("application/octet-stream"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2*1024*1024))
}
