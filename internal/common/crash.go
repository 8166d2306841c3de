// -----------------------------------------------------------------------
// Crash Protection - Fatal panic post-mortem files
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir receives crash report files. Set once at startup.
var CrashLogDir = "./logs"

// InstallCrashHandler prepares the crash report directory. Call at the top
// of main together with a deferred RecoverWithCrashFile.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}

	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to create log directory: %v\n", err)
	}
}

// RecoverWithCrashFile is the deferred top-of-main recovery: it writes a
// post-mortem file for a fatal panic and exits non-zero.
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, currentStack())
		os.Exit(1)
	}
}

// WriteCrashFile writes a post-mortem report for a fatal panic and returns
// the file path. Failures fall back to stderr so the report is never lost
// silently.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	var report bytes.Buffer

	section(&report, "MELD CRASH REPORT")
	fmt.Fprintf(&report, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n\n", GetFullVersion())

	section(&report, "PANIC VALUE")
	fmt.Fprintf(&report, "%v\n\n", panicVal)

	section(&report, "STACK TRACE")
	report.WriteString(stackTrace)
	report.WriteString("\n")

	section(&report, "ALL GOROUTINES")
	report.WriteString(allGoroutineStacks())
	report.WriteString("\n")

	section(&report, "SYSTEM INFO")
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fmt.Fprintf(&report, "NumGoroutine: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&report, "NumCPU: %d\n", runtime.NumCPU())
	fmt.Fprintf(&report, "GOOS/GOARCH: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&report, "Alloc: %d MB\n", memStats.Alloc/1024/1024)
	fmt.Fprintf(&report, "Sys: %d MB\n", memStats.Sys/1024/1024)
	fmt.Fprintf(&report, "NumGC: %d\n\n", memStats.NumGC)

	section(&report, "END CRASH REPORT")

	// Unbuffered write; the process is about to die.
	if err := os.WriteFile(crashPath, report.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to write crash file: %v\n", err)
		fmt.Fprint(os.Stderr, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\n", crashPath)
	fmt.Fprintf(os.Stderr, "Panic: %v\n", panicVal)

	return crashPath
}

func section(report *bytes.Buffer, title string) {
	fmt.Fprintf(report, "=== %s ===\n", title)
}

// currentStack returns the panicking goroutine's stack.
func currentStack() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// allGoroutineStacks dumps every goroutine, growing the buffer until the
// dump fits (capped at 64MB).
func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
		if len(buf) > 64*1024*1024 {
			return string(buf[:runtime.Stack(buf, true)])
		}
	}
}
