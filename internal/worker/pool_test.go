package worker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/videoforge/mediagen-be/internal/falclient"
	"github.com/videoforge/mediagen-be/internal/worker/domain"
)

func TestShouldRequeue(t *testing.T) {
	w := &Worker{logger: testLogger()}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "already claimed",
			err:  fmt.Errorf("failed: %w", domain.ErrAlreadyClaimed),
			want: false,
		},
		{
			name: "max retries exceeded",
			err:  fmt.Errorf("%w: boom", domain.ErrMaxRetriesExceeded),
			want: false,
		},
		{
			name: "invalid payload",
			err:  fmt.Errorf("%w: bad json", domain.ErrInvalidPayload),
			want: false,
		},
		{
			name: "validation failure",
			err:  fmt.Errorf("%w: missing prompt", falclient.ErrValidation),
			want: false,
		},
		{
			name: "protocol failure",
			err:  fmt.Errorf("%w: status 500", falclient.ErrProtocol),
			want: false,
		},
		{
			name: "empty result",
			err:  falclient.ErrEmptyResult,
			want: false,
		},
		{
			name: "retryable wrapper",
			err:  domain.NewRetryableError(errors.New("connection refused")),
			want: true,
		},
		{
			name: "unknown error defaults to no requeue",
			err:  errors.New("something unexpected"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldRequeue(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "validation is deterministic",
			err:  fmt.Errorf("%w: missing image_url", falclient.ErrValidation),
			want: false,
		},
		{
			name: "protocol is deterministic",
			err:  fmt.Errorf("%w: missing status_url", falclient.ErrProtocol),
			want: false,
		},
		{
			name: "empty result is deterministic",
			err:  fmt.Errorf("%w: no images", falclient.ErrEmptyResult),
			want: false,
		},
		{
			name: "network is transient",
			err:  fmt.Errorf("%w: dial tcp", falclient.ErrNetwork),
			want: true,
		},
		{
			name: "poll timeout is transient",
			err:  falclient.ErrTimeout,
			want: true,
		},
		{
			name: "storage is transient",
			err:  fmt.Errorf("%w: disk full", falclient.ErrStorage),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
