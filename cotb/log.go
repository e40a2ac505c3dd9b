package cotb

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gocotb/gocotb/gpi"
)

// Formatter renders log entries as
//
//	{time:>9.2f}{unit} LEVEL component message
//
// where time is the current simulation time in precision ticks. A Formatter
// without a Time source shows a dashed time column.
type Formatter struct {
	// Time reports the current simulation time and its unit suffix.
	Time func() (float64, string)
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	timeStr := "------"
	if f.Time != nil {
		v, unit := f.Time()
		timeStr = fmt.Sprintf("%9.2f%s", v, unit)
	}
	component, _ := e.Data["component"].(string)
	line := fmt.Sprintf("%9s   %-8s %-32s   %s\n",
		timeStr, strings.ToUpper(e.Level.String()), component, e.Message)
	return []byte(line), nil
}

// newLogger builds the engine logger with simulation-time stamps sourced
// from g.
func newLogger(g gpi.Interface) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&Formatter{
		Time: func() (float64, string) {
			return float64(g.SimTime()), g.SimPrecision().String()
		},
	})
	return l
}
