package reactive

import "log/slog"

// levelTrace is below slog.LevelDebug; per-run effect logging is only
// emitted when a handler is configured this low.
const levelTrace = slog.LevelDebug - 4
