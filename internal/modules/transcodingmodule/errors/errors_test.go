package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscodingError(t *testing.T) {
	err := New(ErrorTypeSession, "create_session", errors.New("database error"))
	assert.Equal(t, ErrorTypeSession, err.Type)
	assert.Equal(t, "create_session", err.Op)

	err = err.WithSession("test-session-123").WithDetail("stage", 3)
	assert.Equal(t, "test-session-123", err.SessionID)
	assert.Equal(t, 3, err.Details["stage"])

	assert.Equal(t, "session error in create_session for session test-session-123: database error", err.Error())
}

func TestConfigErrorMatchesSentinel(t *testing.T) {
	err := ConfigError("validate_encoding", ErrNoStreamsEnabled)

	assert.True(t, errors.Is(err, ErrNoStreamsEnabled))
	assert.False(t, errors.Is(err, ErrCRFOnNonVideo))
	assert.True(t, IsConfig(err))
	assert.Equal(t, "validate_encoding", GetOperation(err))
	assert.Contains(t, err.Error(), "no streams are enabled")
}

func TestConfigSentinelMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrVideoEncoderKind, "video cannot have an audio or subtitle encoder"},
		{ErrAudioEncoderKind, "audio cannot have an video or subtitle encoder"},
		{ErrSubtitleEncoderKind, "subtitle cannot have an audio or video encoder"},
		{ErrNoStreamsEnabled, "no streams are enabled"},
		{ErrCRFOnNonVideo, "audio and subtitles cannot have a crf"},
		{ErrRateWithoutEncoder, "bitrate and crf cannot be set without an encoder"},
		{ErrFileNotFound, "File does not exist"},
		{ErrDirectoryExists, "directory already exists"},
		{ErrNotDirectory, "path must be a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeSession, "test_op"))

	wrapped := Wrap(errors.New("test error"), ErrorTypeStorage, "store_job")
	tErr, ok := wrapped.(*TranscodingError)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeStorage, tErr.Type)

	// already structured errors are preserved
	assert.Same(t, wrapped, Wrap(wrapped, ErrorTypeInternal, "different_op"))
}

func TestGetTypeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, GetType(errors.New("plain")))
	assert.Nil(t, GetDetails(errors.New("plain")))
}

func TestFromPanic(t *testing.T) {
	cause := errors.New("boom")
	err := FromPanic("run_job", cause, []byte("goroutine 1"))

	assert.Equal(t, ErrorTypeInternal, err.Type)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "goroutine 1", err.Details["stack"])

	err = FromPanic("run_job", "bad state", nil)
	assert.Contains(t, err.Error(), "panic: bad state")
}
