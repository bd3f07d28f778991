// Package log provides centralized logging for the Specmint CLI.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specmint/specmint-cli/internal/utils"
)

// Setup configures the default slog logger (call once at startup)
func Setup(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := NewHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// --- Developer Logging (wraps slog) ---

// Debug logs a debug-level message
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info-level message
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning-level message
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error-level message
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// --- User-Facing Output (styled) ---

// UserError prints a styled error message to the user
func UserError(msg string) {
	printStyled(renderError(msg))
}

// UserWarn prints a styled warning message to the user
func UserWarn(msg string) {
	printStyled(renderWarning(msg))
}

// UserSuccess prints a styled success message to the user
func UserSuccess(msg string) {
	printStyled(renderSuccess(msg))
}

// UserInfo prints an informational message to the user
func UserInfo(msg string) {
	printStyled(msg)
}

// UserProgress prints a progress/dim message to the user
func UserProgress(msg string) {
	printStyled(renderDim(msg))
}

// Print prints a message without styling or newline
func Print(msg string) {
	_, _ = io.WriteString(os.Stdout, msg)
}

// Println prints a message with newline but no styling
func Println(msg string) {
	_, _ = io.WriteString(os.Stdout, msg+"\n")
}

// Printf prints a formatted message without styling
func Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stdout, format, args...)
}

func printStyled(msg string) {
	// Escape sequences are useless in a pipe or a file.
	if !utils.IsTerminal() {
		msg = utils.StripANSI(msg)
	}
	_, _ = io.WriteString(os.Stdout, msg+"\n")
}
