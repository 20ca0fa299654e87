package detection

// Classification labels that raise an alarm. Matching is exact and
// case-sensitive; the score is deliberately not consulted here.
const (
	TypeFace  = "Face"
	TypeHuman = "Human"
)

// Logger is the logging surface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
}

// Filter decides whether a decoded record is alarm-worthy.
// The zero value is usable and silent.
type Filter struct {
	logger Logger
}

// NewFilter creates a Filter that logs rejections to logger (may be nil).
func NewFilter(logger Logger) *Filter {
	return &Filter{logger: logger}
}

// Accept reports whether rec is a Face or Human detection.
func (f *Filter) Accept(rec Record) bool {
	if IsAlarmType(rec.Type) {
		return true
	}
	if f != nil && f.logger != nil {
		f.logger.Info("detected object will not raise an alarm", "type", rec.Type)
	}
	return false
}

// IsAlarmType reports whether typ is one of the alarm classifications.
func IsAlarmType(typ string) bool {
	switch typ {
	case TypeFace, TypeHuman:
		return true
	default:
		return false
	}
}
