package core

// Logger is any structured logger used by the apps.
// args may hold errors, maps of extra data and the dashboard district the message relates to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// District identifies the district a log entry relates to.
type District struct {
	ID string
}
