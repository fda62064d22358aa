package logging

// Config mirrors the repoaudit --log-format, --log-level, and
// --log-output persistent flags.
type Config struct {
	Format string // "pretty" or "jsonl"
	Level  string
	Output string // "stderr" or a file path
}

func DefaultConfig() Config {
	return Config{
		Format: "pretty",
		Level:  "info",
		Output: "stderr",
	}
}

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// levelPriority orders levels for filtering; unknown names fall back
// to info rather than erroring, so a typo never silences the log.
func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1 // default to info
	}
}
