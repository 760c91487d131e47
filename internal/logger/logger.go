package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type levelStyle struct {
	name     string
	level    *color.Color
	category *color.Color
}

var levelStyles = map[LogLevel]levelStyle{
	DEBUG: {"DEBUG", color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)},
	INFO:  {"INFO", color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)},
	WARN:  {"WARN", color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)},
	ERROR: {"ERROR", color.New(color.FgRed), color.New(color.FgRed, color.Bold)},
	FATAL: {"FATAL", color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
}

var (
	timeColor = color.New(color.FgBlue)
	fileColor = color.New(color.FgMagenta)
)

func (lv LogLevel) String() string {
	if s, ok := levelStyles[lv]; ok {
		return s.name
	}
	return "INFO"
}

// ParseLevel maps a LOG_LEVEL value to a level; unknown values mean INFO.
func ParseLevel(s string) LogLevel {
	for lv, style := range levelStyles {
		if strings.EqualFold(s, style.name) {
			return lv
		}
	}
	return INFO
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service,omitempty"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Logger struct {
	mu       sync.Mutex
	service  string
	terminal io.Writer
	dir      string
	day      string
	logFile  *os.File
	minLevel LogLevel
}

// NewLogger writes colored output to stdout and JSON lines to
// logs/<service>-<date>.log. A new file is started when the date changes.
func NewLogger(service string) *Logger {
	l := &Logger{
		service:  service,
		terminal: os.Stdout,
		dir:      "logs",
		minLevel: ParseLevel(os.Getenv("LOG_LEVEL")),
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}
	if err := l.rotate(time.Now()); err != nil {
		log.Fatal("Failed to create log file:", err)
	}

	l.Info("LOGGER", fmt.Sprintf("Logging to %s at level %s", l.logFile.Name(), l.minLevel))
	return l
}

// NewWriterLogger logs only to w, without a log file. Used by tests and tools.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{terminal: w, minLevel: DEBUG}
}

// rotate opens the file of now's date. Callers hold mu or own l exclusively.
func (l *Logger) rotate(now time.Time) error {
	day := now.Format("2006-01-02")
	if l.logFile != nil && day == l.day {
		return nil
	}

	name := filepath.Join(l.dir, fmt.Sprintf("%s-%s.log", l.service, day))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	if l.logFile != nil {
		l.logFile.Close()
	}
	l.logFile, l.day = f, day
	return nil
}

func (l *Logger) log(level LogLevel, category, message string) {
	if level < l.minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	now := time.Now()
	entry := LogEntry{
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     level.String(),
		Service:   l.service,
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.terminal, formatTerminal(level, entry))

	if l.dir == "" {
		return
	}
	if err := l.rotate(now); err != nil {
		fmt.Fprintf(l.terminal, "logger: %v\n", err)
		return
	}
	if b, err := json.Marshal(entry); err == nil {
		l.logFile.Write(append(b, '\n'))
	}
}

func formatTerminal(level LogLevel, entry LogEntry) string {
	style, ok := levelStyles[level]
	if !ok {
		style = levelStyles[INFO]
	}

	line := fmt.Sprintf("%s %s %s %s",
		timeColor.Sprint(entry.Timestamp[11:19]),
		style.level.Sprintf("%-5s", entry.Level),
		style.category.Sprintf("[%-10s]", entry.Category),
		entry.Message)

	if entry.File != "" && entry.Line > 0 {
		line += fileColor.Sprintf(" (%s:%d)", entry.File, entry.Line)
	}
	return line + "\n"
}

func (l *Logger) Debug(category, message string) {
	l.log(DEBUG, category, message)
}

func (l *Logger) Info(category, message string) {
	l.log(INFO, category, message)
}

func (l *Logger) Warn(category, message string) {
	l.log(WARN, category, message)
}

func (l *Logger) Error(category, message string) {
	l.log(ERROR, category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

func (l *Logger) LogTicket(action, ticketID, message string) {
	l.log(INFO, "TICKET", fmt.Sprintf("[%s] %s - %s", action, ticketID, message))
}

func (l *Logger) LogDiscount(action, code, message string) {
	l.log(INFO, "DISCOUNT", fmt.Sprintf("[%s] %s - %s", action, code, message))
}

// LogAPI logs a finished request; 5xx responses are logged as errors.
func (l *Logger) LogAPI(method, path string, status int, duration time.Duration) {
	level := INFO
	if status >= 500 {
		level = ERROR
	}
	l.log(level, "API", fmt.Sprintf("%s %s - %d (%s)", method, path, status, duration.Round(time.Microsecond)))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.log(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.log(INFO, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.log(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
}
