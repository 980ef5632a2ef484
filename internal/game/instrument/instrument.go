// Package instrument wraps operations with timing and outcome logging.
package instrument

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SlowThreshold is the duration above which a successful operation is logged
// at info level rather than debug.
var SlowThreshold = 250 * time.Millisecond

// Run executes fn as the named operation. A panic inside fn is converted into
// an error so callers always get a result.
func Run(logger *zap.Logger, op string, fn func() error) error {
	_, err := Value(logger, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Value is Run for operations that produce a result.
func Value[T any](logger *zap.Logger, op string, fn func() (T, error)) (result T, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", op, r)
			logger.Error("operation panicked",
				zap.String("op", op),
				zap.Any("panic", r),
				zap.Duration("duration", time.Since(start)),
			)
			return
		}
		elapsed := time.Since(start)
		switch {
		case err != nil:
			logger.Warn("operation failed",
				zap.String("op", op),
				zap.Duration("duration", elapsed),
				zap.Error(err),
			)
		case elapsed >= SlowThreshold:
			logger.Info("slow operation", zap.String("op", op), zap.Duration("duration", elapsed))
		default:
			logger.Debug("operation completed", zap.String("op", op), zap.Duration("duration", elapsed))
		}
	}()
	return fn()
}
