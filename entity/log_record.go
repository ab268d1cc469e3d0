package entity

import "time"

// LogRecord is one persisted audit trail entry. Validation failures and state
// transitions are stored through this record to support forensic review.
type LogRecord struct {
	Time    time.Time `json:"time" bson:"time"`
	Level   string    `json:"level" bson:"level"`
	Source  string    `json:"source" bson:"source"`
	Message string    `json:"message" bson:"message"`
}

func (l *LogRecord) DataType() string {
	return "log_record"
}
