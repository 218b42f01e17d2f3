// Package logging provides leveled debug logging with automatic caller
// location, the way the supervisor's ambient logging has always worked:
// set the DEBUG environment variable to enable file/line/function-tagged
// output, otherwise only plain operational lines are printed.
//
// Grounded on shared/debug.go and shared/config.go's DEBUG_MODE switch.
package logging

import (
	"log"
	"path/filepath"
	"runtime"
	"strings"
)

// Enabled controls whether Debugf produces output. Set once during
// startup from config.Config.Debug; not safe to flip concurrently with
// logging calls.
var Enabled = false

// Debugf prints a formatted debug line tagged with the caller's file, line,
// and function name. A no-op unless Enabled is true.
func Debugf(format string, args ...any) {
	if !Enabled {
		return
	}
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		log.Printf("DEBUG: "+format+"\n", args...)
		return
	}
	filename := filepath.Base(file)
	funcName := shortFuncName(runtime.FuncForPC(pc).Name())
	log.Printf("[%s:%d %s]: "+format+"\n", append([]any{filename, line, funcName}, args...)...)
}

// Errorf logs an error regardless of Enabled — errors are always worth a
// line. The caller's file, line, and function are added only when Enabled.
func Errorf(err error) {
	if !Enabled {
		log.Printf("ERROR: %v\n", err)
		return
	}
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		log.Printf("ERROR: %v\n", err)
		return
	}
	filename := filepath.Base(file)
	funcName := shortFuncName(runtime.FuncForPC(pc).Name())
	log.Printf("ERROR [%s:%d %s]: %v\n", filename, line, funcName, err)
}

func shortFuncName(fullName string) string {
	if lastSlash := strings.LastIndex(fullName, "/"); lastSlash >= 0 {
		fullName = fullName[lastSlash+1:]
	}
	if lastDot := strings.LastIndex(fullName, "."); lastDot >= 0 {
		return fullName[lastDot+1:]
	}
	return fullName
}
