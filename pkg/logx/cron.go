package logx

import "fmt"

// CronLogger adapts a Logger to robfig/cron's Logger interface.
// Cron's own info chatter (schedule, wake, run) is demoted to debug.
type CronLogger struct {
	L Logger
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.L.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.L.Error("cron: "+msg, append(kv(keysAndValues), Err(err))...)
}

func kv(keysAndValues []interface{}) []Field {
	out := make([]Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		k := fmt.Sprint(keysAndValues[i])
		out = append(out, Any(k, keysAndValues[i+1]))
	}
	return out
}
