package logger

import "go.uber.org/zap"

// New builds the process-wide production logger. Services receive it through
// the log service rather than importing this package directly.
func New() (*zap.Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l, nil
}
