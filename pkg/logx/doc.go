// Package logx configures metronome's structured logging.
//
// It is a thin wrapper (logx.Logger) on top of zerolog that keeps console
// output readable (short timestamp + short caller) and file output
// JSON-structured, and lets the log level and sinks be swapped at runtime
// via Service.Apply without replacing handed-out loggers.
package logx
