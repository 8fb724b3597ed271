package bridge

import (
	"runtime"
	"strings"
)

// panicStack returns the current goroutine's stack with the runtime frames
// leading up to the panic removed.
func panicStack() string {
	buf := make([]byte, 8096)
	n := runtime.Stack(buf, false)
	return cleanStackTrace(string(buf[:n]))
}

func cleanStackTrace(stack string) string {
	lines := strings.Split(stack, "\n")

	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	// drop the panic() call line and its file reference
	// panic({0x101fc1100?, 0x14000817248?})
	//         ./go/src/runtime/panic.go:785 +0x124
	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		lines = lines[panicLineIndex+2:]
	}

	return strings.Join(lines, "\n")
}
