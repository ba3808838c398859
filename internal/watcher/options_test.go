package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/fsys"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.NotifyNewFiles)
	assert.False(t, opts.IgnoreInitial)
	assert.Zero(t, opts.MaxDepth)
	assert.Equal(t, 200*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, 64, opts.MaxConcurrentOps)
	assert.Equal(t, 1000, opts.EventBufferSize)
	assert.Equal(t, fsys.DefaultPollInterval, opts.PollInterval)
	assert.Equal(t, DefaultIgnore, opts.Ignore)
	require.NoError(t, opts.Validate())
}

func TestOptions_WithDefaults(t *testing.T) {
	// Given: zero options
	opts := Options{}.WithDefaults()

	// Then: every unset field gets its default
	assert.Equal(t, 200*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, DefaultIgnore, opts.Ignore)
	assert.Equal(t, 64, opts.MaxConcurrentOps)
	assert.Equal(t, 1000, opts.EventBufferSize)
	assert.NotNil(t, opts.Clock)
	assert.NotNil(t, opts.Logger)

	// And: booleans keep their zero value; only DefaultOptions turns
	// NotifyNewFiles on
	assert.False(t, opts.NotifyNewFiles)
}

func TestOptions_WithDefaultsKeepsExplicitValues(t *testing.T) {
	opts := Options{
		DebounceWindow:   time.Second,
		Ignore:           []string{},
		MaxConcurrentOps: 3,
		EventBufferSize:  7,
	}.WithDefaults()

	assert.Equal(t, time.Second, opts.DebounceWindow)
	assert.Empty(t, opts.Ignore, "an empty slice ignores nothing")
	assert.NotNil(t, opts.Ignore)
	assert.Equal(t, 3, opts.MaxConcurrentOps)
	assert.Equal(t, 7, opts.EventBufferSize)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		code   string
	}{
		{"negative depth", func(o *Options) { o.MaxDepth = -1 }, errors.ErrCodeInvalidInput},
		{"negative debounce", func(o *Options) { o.DebounceWindow = -time.Second }, errors.ErrCodeInvalidInput},
		{"negative concurrency", func(o *Options) { o.MaxConcurrentOps = -2 }, errors.ErrCodeInvalidInput},
		{"negative buffer", func(o *Options) { o.EventBufferSize = -1 }, errors.ErrCodeInvalidInput},
		{"bad ignore", func(o *Options) { o.Ignore = []string{"[abc"} }, errors.ErrCodeInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)
			var werr *errors.WatchError
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, tt.code, werr.Code)
		})
	}
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = -1

	w, err := New(opts)
	assert.Error(t, err)
	assert.Nil(t, w)
}
