package fsext

// Logger is the diagnostic sink the core reports to. It is never required:
// the zero value of OpenOptions leaves it nil, and every call site below
// guards against that, so nothing is logged unless a caller opts in by
// supplying a *zap.SugaredLogger or any other value satisfying this
// interface.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

func debugw(l Logger, msg string, kv ...interface{}) {
	if l != nil {
		l.Debugw(msg, kv...)
	}
}

func warnw(l Logger, msg string, kv ...interface{}) {
	if l != nil {
		l.Warnw(msg, kv...)
	}
}
