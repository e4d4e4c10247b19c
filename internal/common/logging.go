package common

import (
	"io"
	"log"
	"os"
)

var (
	logger = log.New(os.Stderr, "[podrom] ", log.LstdFlags|log.Lmicroseconds)
)

// SetLogOutput redirects the package logger.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}
