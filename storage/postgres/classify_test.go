package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/poiesic/vecport/storage"
	"github.com/stretchr/testify/assert"
)

// timeoutErr implements net.Error for timeout classification tests.
type timeoutErr struct{ timeout bool }

func (e *timeoutErr) Error() string   { return "net failure" }
func (e *timeoutErr) Timeout() bool   { return e.timeout }
func (e *timeoutErr) Temporary() bool { return e.timeout }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil passes through",
			err:  nil,
			want: nil,
		},
		{
			name: "bad connection",
			err:  driver.ErrBadConn,
			want: storage.ErrConnectionFailed,
		},
		{
			name: "wrapped bad connection",
			err:  fmt.Errorf("exec: %w", driver.ErrBadConn),
			want: storage.ErrConnectionFailed,
		},
		{
			name: "unexpected eof",
			err:  io.ErrUnexpectedEOF,
			want: storage.ErrConnectionFailed,
		},
		{
			name: "deadline exceeded is transient",
			err:  context.DeadlineExceeded,
			want: storage.ErrTransientFailure,
		},
		{
			name: "net timeout is transient",
			err:  &timeoutErr{timeout: true},
			want: storage.ErrTransientFailure,
		},
		{
			name: "net failure without timeout is a connection failure",
			err:  &timeoutErr{timeout: false},
			want: storage.ErrConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
			} else {
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestClassifyError_UnknownErrorPassesThrough(t *testing.T) {
	original := errors.New("column does not exist")
	got := classifyError(original)
	assert.ErrorIs(t, got, original)
	assert.NotErrorIs(t, got, storage.ErrTransientFailure)
	assert.NotErrorIs(t, got, storage.ErrConnectionFailed)
}

func TestClassifyError_ContextDeadlineWrapped(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	got := classifyError(fmt.Errorf("query: %w", ctx.Err()))
	assert.ErrorIs(t, got, storage.ErrTransientFailure)
}
