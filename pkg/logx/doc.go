// Package logx wraps zerolog behind a small, stable logging facade.
//
// Services depend on the Logger value type only; the Service owns sinks and
// levels and may be re-applied at runtime without invalidating loggers that
// were handed out earlier.
package logx
