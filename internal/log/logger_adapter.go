package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"firestige.xyz/ethermirror/internal/config"
)

const timeFormat = "2006-01-02 15:04:05.000"

type logrusAdapter struct {
	entry *logrus.Entry
}

// FromLogrus wraps an existing logrus logger.
func FromLogrus(l *logrus.Logger) Logger {
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}

// Root is the logger built once at startup. Close flushes the delivery
// queue and closes the log file.
type Root struct {
	Logger

	// Path is the JSON log file of this process.
	Path string

	queue *asyncQueue
	file  *fileAppender
}

type options struct {
	console io.Writer
	now     func() time.Time
	exit    func(int)
}

// Option customises New.
type Option func(*options)

// WithConsole replaces os.Stdout as the console sink.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithClock sets the clock used to name the log file.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithExit replaces os.Exit for Fatal entries.
func WithExit(exit func(int)) Option {
	return func(o *options) { o.exit = exit }
}

// New builds the logger: a colorized console sink and a JSON-lines file
// sink named after the process start time, both fed through one blocking
// queue. An unopenable log file is an error.
func New(cfg config.LogConfig, opts ...Option) (*Root, error) {
	o := options{console: os.Stdout, now: time.Now, exit: os.Exit}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	dirMsg := ensureDir(cfg.Dir)
	path := filepath.Join(cfg.Dir, fileName(o.now()))
	file, err := newFileAppender(path, cfg.Rotation)
	if err != nil {
		return nil, err
	}

	queue := newAsyncQueue(cfg.QueueSize)

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&prefixed.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: timeFormat,
	})
	l.SetOutput(queue.Writer(o.console))
	l.AddHook(&fileHook{
		writer:    queue.Writer(file),
		formatter: &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano},
	})

	root := &Root{
		Logger: &logrusAdapter{entry: logrus.NewEntry(l)},
		Path:   path,
		queue:  queue,
		file:   file,
	}
	l.ExitFunc = func(code int) {
		_ = root.Close()
		o.exit(code)
	}

	root.Info(dirMsg)
	return root, nil
}

// Close drains pending entries and closes the file. Entries logged after
// Close are written synchronously.
func (r *Root) Close() error {
	r.queue.Close()
	return r.file.Close()
}

// ensureDir creates dir if needed. Any failure counts as "already exists";
// a directory that is really missing surfaces when the file is opened.
func ensureDir(dir string) string {
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "Logging directory already exists, skipping"
	}
	return "Created logging directory"
}

func fileName(start time.Time) string {
	return start.UTC().Format("2006-01-02T15-04-05.000000000Z") + ".log"
}

type fileHook struct {
	writer    *queueWriter
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *logrusAdapter) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}
func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}
func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
