package errors

import (
	"go.uber.org/zap"
)

// LogError logs an error with its context
func LogError(logger *zap.Logger, err error, requestID string) {
	if bridgeErr, ok := err.(*BridgeError); ok {
		logger.Error("request error",
			zap.String("error_kind", string(bridgeErr.Kind)),
			zap.String("message", bridgeErr.Message),
			zap.Int("code", bridgeErr.Code),
			zap.String("request_id", requestID),
			zap.Any("details", bridgeErr.Details),
		)
	} else {
		logger.Error("unexpected error",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
	}
}
