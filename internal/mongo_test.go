package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcessLogRecords(t *testing.T) {
	// a limit of zero means unlimited retention
	assert.EqualValues(t, 0, excessLogRecords(1000, 0))
	assert.EqualValues(t, 0, excessLogRecords(50, 100))
	assert.EqualValues(t, 0, excessLogRecords(100, 100))
	assert.EqualValues(t, 1, excessLogRecords(101, 100))
	assert.EqualValues(t, 250, excessLogRecords(350, 100))
}
