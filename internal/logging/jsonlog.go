package logging

import (
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	logger.Formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	logger.SetLevel(log.InfoLevel)
}

// SetLevel accepts debug, info, warn or error. Unknown levels keep the current one.
func SetLevel(level string) {
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
}

// SetOutput redirects log lines, mostly for tests.
func SetOutput(w io.Writer) { logger.Out = w }

func Log(level, msg string, fields map[string]any) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.WithFields(log.Fields(fields)).Log(lvl, msg)
}

func Debug(msg string, fields map[string]any) { Log("debug", msg, fields) }
func Info(msg string, fields map[string]any)  { Log("info", msg, fields) }
func Warn(msg string, fields map[string]any)  { Log("warn", msg, fields) }
func Error(msg string, fields map[string]any) { Log("error", msg, fields) }
