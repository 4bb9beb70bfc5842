package ics

import "log/slog"

func warnf(msg string, args ...any) {
	slog.Warn(msg, args...)
}
