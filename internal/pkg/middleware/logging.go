package middleware

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
)

// Logging writes one access log line per request to out, tagged with the
// request id, and turns handler panics into 500 responses reported through
// logger.
func Logging(out io.Writer, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		recovered := handlers.RecoveryHandler(
			handlers.RecoveryLogger(logger),
			handlers.PrintRecoveryStack(false),
		)(next)
		return RequestID(handlers.CustomLoggingHandler(out, recovered, writeAccessLog))
	}
}

// writeAccessLog formats a line in the Apache combined style followed by the
// request id.
func writeAccessLog(w io.Writer, params handlers.LogFormatterParams) {
	req := params.Request

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	fmt.Fprintf(w, "%s - - [%s] \"%s %s %s\" %d %d %q %q request_id=%s\n",
		host,
		params.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
		req.Method,
		params.URL.RequestURI(),
		req.Proto,
		params.StatusCode,
		params.Size,
		req.Referer(),
		req.UserAgent(),
		RequestIDFrom(req.Context()),
	)
}
