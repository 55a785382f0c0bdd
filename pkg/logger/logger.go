package logger

import (
	"io"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	consoleFormatter = &prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	}

	fileFormatter = &prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
		DisableColors:   true,
	}

	prefixLen = 13
)

type consoleHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = h.writer.Write(b)
	return err
}

// Init configures the global logrus instance. Verbosity increases the level
// from Info through Debug to Trace, quiet drops console output entirely while
// still writing the rotated log file.
func Init(verbosity int, quiet bool, logFilePath string) error {
	level := logrus.InfoLevel
	switch {
	case verbosity == 1:
		level = logrus.DebugLevel
	case verbosity > 1:
		level = logrus.TraceLevel
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(fileFormatter)

	// all output flows through hooks, the default writer stays silent
	logrus.SetOutput(io.Discard)

	if !quiet {
		logrus.AddHook(&consoleHook{
			writer:    os.Stderr,
			formatter: consoleFormatter,
		})
	}

	if logFilePath != "" {
		logrus.AddHook(&consoleHook{
			writer: &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    5,
				MaxBackups: 2,
			},
			formatter: fileFormatter,
		})
	}

	return nil
}

// GetLogger returns a prefixed log entry, padded for aligned console output.
func GetLogger(prefix string) *logrus.Entry {
	if len(prefix) > prefixLen {
		prefix = prefix[:prefixLen]
	}

	pad := prefixLen - len(prefix)
	if pad < 0 {
		pad = 0
	}

	return logrus.WithField("prefix", prefix+strings.Repeat(" ", pad))
}
