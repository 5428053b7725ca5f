package transport

import "fmt"

// debugEnabled gates the trace-level debug() calls sprinkled through the
// packet/frame processing paths. It is off by default; tests that want to
// see the trace set it directly. The package-wide LogEvent mechanism
// (Conn.OnLogEvent) is the supported observability surface - this is a
// cheap internal trace only.
var debugEnabled = false

func debug(format string, values ...interface{}) {
	if !debugEnabled {
		return
	}
	fmt.Printf(format+"\n", values...)
}

// sprint is a tiny fmt.Sprint wrapper used when building error messages
// from heterogeneous values without incurring fmt.Sprintf format-string
// bookkeeping at every call site.
func sprint(values ...interface{}) string {
	return fmt.Sprint(values...)
}
