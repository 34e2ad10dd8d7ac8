package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/poiesic/vecport/storage"
)

// SQLSTATE codes the pipeline treats as retryable: serialization
// failure, deadlock, lock-not-available, query-cancelled.
var transientStates = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
	"57014": true,
}

// SQLSTATE codes that mean the server is going away.
var shutdownStates = map[string]bool{
	"57P01": true,
	"57P02": true,
	"57P03": true,
}

// classifyError translates driver-level failures into the storage
// sentinel taxonomy so that retry and conflict handling upstream stays
// backend-agnostic. Errors outside the taxonomy pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		state := pgErr.Field('C')
		switch {
		case state == "23505":
			return fmt.Errorf("%w: %v", storage.ErrDuplicateKey, err)
		case strings.HasPrefix(state, "08"), shutdownStates[state]:
			return fmt.Errorf("%w: %v", storage.ErrConnectionFailed, err)
		case transientStates[state]:
			return fmt.Errorf("%w: %v", storage.ErrTransientFailure, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", storage.ErrConnectionFailed, err)
	}

	// A deadline on one call is transient; the retry policy decides when
	// it escalates.
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", storage.ErrTransientFailure, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", storage.ErrTransientFailure, err)
		}
		return fmt.Errorf("%w: %v", storage.ErrConnectionFailed, err)
	}

	return err
}
