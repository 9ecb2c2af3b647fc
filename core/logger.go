package core

// Logger is any service that can log messages with optional structured args.
// Args may include an error to report and, for services that support it,
// a teacher.Teacher to attach the acting account to the report.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
