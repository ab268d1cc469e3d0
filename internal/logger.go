package internal

import (
	"fmt"
	"log"
	"time"

	"github.com/qenta-cee/demandware-wcp/entity"
	"github.com/qenta-cee/demandware-wcp/services"
)

// Logger writes leveled messages to the standard log. Records at warn level
// and above are also persisted to the database when one is attached; those
// records form the audit trail used for payment forensics.
type Logger struct {
	name     string
	debug    bool
	database services.Database
}

func NewLogger(name string, debug bool, database services.Database) *Logger {
	return &Logger{
		name:     name,
		debug:    debug,
		database: database,
	}
}

func (l *Logger) Debug(message string) {
	if !l.debug {
		return
	}
	l.write("DEBUG", message, false)
}

func (l *Logger) Info(message string) {
	l.write("INFO", message, false)
}

func (l *Logger) Warn(message string) {
	l.write("WARN", message, true)
}

func (l *Logger) Error(message string, err error) {
	l.write("ERROR", fmt.Sprintf("%s: %v", message, err), true)
}

// Fatal records the highest-severity message, used for integrity failures
// like fingerprint or amount mismatches. It does not stop the process.
func (l *Logger) Fatal(message string) {
	l.write("FATAL", message, true)
}

func (l *Logger) write(level, message string, persist bool) {
	log.Printf("%s: [%s] %s", level, l.name, message)
	if persist && l.database != nil {
		record := &entity.LogRecord{
			Time:    time.Now(),
			Level:   level,
			Source:  l.name,
			Message: message,
		}
		if err := l.database.WriteLogMessage(record); err != nil {
			log.Printf("ERROR: [%s] write log record: %v", l.name, err)
		}
	}
}
