package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// StoreLogger receives structured diagnostics emitted by the storage engines.
//
// This is intentionally minimal to avoid coupling storage to a specific
// logging library. Implementations should treat fields as a stable
// machine-readable contract.
type StoreLogger interface {
	Log(level string, msg string, fields map[string]any)
}

type defaultStoreLogger struct{}

func (defaultStoreLogger) Log(level string, msg string, fields map[string]any) {
	// Best-effort structured printing using stdlib log.
	payload := map[string]any{
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[store] level=%s msg=%s fields=%v", level, msg, fields)
		return
	}
	log.Printf("[store] %s", string(b))
}

// badgerLogAdapter forwards BadgerDB's internal logging into a StoreLogger.
type badgerLogAdapter struct {
	logger StoreLogger
}

func (a badgerLogAdapter) log(level, format string, args ...any) {
	a.logger.Log(level, strings.TrimRight(fmt.Sprintf(format, args...), "\n"), nil)
}

func (a badgerLogAdapter) Errorf(format string, args ...any)   { a.log("ERROR", format, args...) }
func (a badgerLogAdapter) Warningf(format string, args ...any) { a.log("WARN", format, args...) }
func (a badgerLogAdapter) Infof(format string, args ...any)    { a.log("INFO", format, args...) }
func (a badgerLogAdapter) Debugf(format string, args ...any)   { a.log("DEBUG", format, args...) }
