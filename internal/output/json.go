/*
PURPOSE:
  Writes and reads benchmark records as JSON Lines (NDJSON).
  The reader feeds `forest-bench report`, which re-renders a past run.

REQUIREMENTS:
  User-specified:
  - JSON output for jq analysis (see internal/assets/functions).

  Implementation-discovered:
  - One record per line so an aborted suite still leaves a readable file.
  - Readers must skip blank lines and report the line number of bad ones.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (write), internal/cli report (read)
  - Consumes: internal/model.Record

ERROR HANDLING:
  - Returns error on file creation, write failure, or malformed lines.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder with HTML escaping off (names may contain <, >, &).
  - Thread-safe writes.

USAGE:
  w, err := output.NewJSONWriter("bench_results.jsonl")
  w.Write(record)
  w.Close()
  records, err := output.ReadRecords(f)

RELATED FILES:
  - internal/model/types.go
*/

package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/daryltucker/forest-bench/internal/model"
)

// JSONWriter writes one record per line.
type JSONWriter struct {
	closer  io.Closer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates (or truncates) path.
func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return newJSONWriter(f, f), nil
}

func newJSONWriter(w io.Writer, c io.Closer) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONWriter{closer: c, encoder: enc}
}

// Write writes a single record as a JSON line.
func (jw *JSONWriter) Write(r model.Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(r)
}

// Close closes the underlying file.
func (jw *JSONWriter) Close() error {
	if jw.closer == nil {
		return nil
	}
	return jw.closer.Close()
}

// ReadRecords decodes a JSON Lines stream written by JSONWriter.
func ReadRecords(r io.Reader) ([]model.Record, error) {
	var records []model.Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
