/*
PURPOSE:
  Writes benchmark summaries to a CSV file.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV, one row per benchmark run (per sweep value).

  Implementation-discovered:
  - Overwrite on each suite run; the run_id column ties rows together.
  - Runs without an independent variable leave that column empty.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.Record

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Statistics are written in seconds with 9 decimals (nanosecond resolution).

USAGE:
  w, err := output.NewCSVWriter("bench_results.csv")
  w.Write(record)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when Summary struct changes.
*/

package output

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/daryltucker/forest-bench/internal/model"
)

// CSVHeader is the first row of every CSV file.
var CSVHeader = []string{
	"run_id", "timestamp", "name", "routine", "independent_variable",
	"n", "min_s", "max_s", "mean_s", "median_s",
	"q1_s", "q2_s", "q3_s", "iqr_s", "var_s2", "std_dev_s",
	"elapsed_s", "error",
}

// CSVWriter handles writing records to a CSV file.
type CSVWriter struct {
	closer io.Closer
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	cw, err := newCSVWriter(f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return cw, nil
}

func newCSVWriter(w io.Writer, c io.Closer) (*CSVWriter, error) {
	cw := &CSVWriter{
		closer: c,
		writer: csv.NewWriter(w),
	}
	if err := cw.writer.Write(CSVHeader); err != nil {
		return nil, err
	}
	cw.writer.Flush()
	return cw, cw.writer.Error()
}

func seconds(f float64) string {
	return strconv.FormatFloat(f, 'f', 9, 64)
}

// Write writes a single record to the CSV file.
// It is thread-safe.
func (cw *CSVWriter) Write(r model.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	s := r.Summary
	indep := ""
	if s.IndependentVariable != nil {
		indep = strconv.FormatUint(*s.IndependentVariable, 10)
	}

	record := []string{
		r.RunID,
		r.Timestamp.Format(time.RFC3339),
		s.Name,
		r.Routine,
		indep,
		strconv.FormatUint(s.N, 10),
		seconds(s.Min),
		seconds(s.Max),
		seconds(s.Mean),
		seconds(s.Median),
		seconds(s.Quartiles[0]),
		seconds(s.Quartiles[1]),
		seconds(s.Quartiles[2]),
		seconds(s.IQR),
		strconv.FormatFloat(s.Var, 'g', -1, 64),
		seconds(s.StdDev),
		seconds(r.Elapsed.Seconds()),
		r.Error,
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	if cw.closer == nil {
		return nil
	}
	return cw.closer.Close()
}
