package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/utils"
)

// Recovery turns panics into 500 responses instead of dropped connections.
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					stack := debug.Stack()

					fmt.Printf("❌ PANIC: %v\n", err)
					fmt.Printf("📍 Stack trace:\n%s\n", stack)

					if cfg.IsDevelopment() {
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR",
							fmt.Sprintf("Internal server error: %v", err),
							string(stack))
					} else {
						utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorHandler logs error status codes on the way out.
func ErrorHandler(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ew := &errorResponseWriter{
				ResponseWriter: w,
				config:         cfg,
			}

			next.ServeHTTP(ew, r)
		})
	}
}

type errorResponseWriter struct {
	http.ResponseWriter
	config  *config.Config
	written bool
}

func (ew *errorResponseWriter) WriteHeader(statusCode int) {
	if ew.written {
		return
	}
	ew.written = true

	if statusCode >= 400 {
		if ew.config.IsDevelopment() {
			fmt.Printf("⚠️ HTTP Error: %d\n", statusCode)
		}
	}

	ew.ResponseWriter.WriteHeader(statusCode)
}

func (ew *errorResponseWriter) Write(data []byte) (int, error) {
	if !ew.written {
		ew.WriteHeader(http.StatusOK)
	}
	return ew.ResponseWriter.Write(data)
}
