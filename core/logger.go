package core

// Logger is implemented by the logging services.
// args may hold errors, maps of extra data and the acting principal.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Principal identifies whoever is acting on a request (a customer or an admin), for error reports.
type Principal struct {
	ID       string
	Username string
	Email    string
}
