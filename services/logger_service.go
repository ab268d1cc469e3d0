package services

type LogHandler interface {
	Debug(message string)
	Info(message string)
	Warn(message string)
	Error(message string, err error)
	// Fatal records an integrity failure at the highest severity; it does
	// not terminate the process.
	Fatal(message string)
}
