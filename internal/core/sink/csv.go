package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/namelens/listlens/internal/core"
)

// Cell markers written to the results file.
const (
	CellTrue  = "TRUE"
	CellError = "ERROR"
)

var errorLogHeader = []string{"DateTime", "List_Name", "List_ID", "StatusCode", "ErrorMessage"}

// CSVOptions configures the results and error log files.
type CSVOptions struct {
	ResultsPath  string
	ErrorLogPath string
	Properties   core.PropertySet
	// LogSuccess also appends successful lookups to the error log with an
	// empty message.
	LogSuccess bool
	Clock      func() time.Time
}

// CSVSink writes one results row per check and appends failures to the error
// log. Every record is flushed before Record returns.
type CSVSink struct {
	mu         sync.Mutex
	properties []string
	logSuccess bool
	clock      func() time.Time

	resultsFile  *os.File
	results      *csv.Writer
	errorLogFile *os.File
	errorLog     *csv.Writer
}

// OpenCSV truncates the results file and opens the error log for append,
// writing headers where needed.
func OpenCSV(opts CSVOptions) (*CSVSink, error) {
	if opts.ResultsPath == "" {
		return nil, errors.New("results path is required")
	}
	if opts.ErrorLogPath == "" {
		return nil, errors.New("error log path is required")
	}

	for _, path := range []string{opts.ResultsPath, opts.ErrorLogPath} {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
	}

	resultsFile, err := os.Create(opts.ResultsPath)
	if err != nil {
		return nil, fmt.Errorf("create results file: %w", err)
	}

	// #nosec G302 -- the error log is a shared audit trail
	errorLogFile, err := os.OpenFile(opts.ErrorLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		_ = resultsFile.Close()
		return nil, fmt.Errorf("open error log: %w", err)
	}

	s := &CSVSink{
		properties:   opts.Properties.Names(),
		logSuccess:   opts.LogSuccess,
		clock:        opts.Clock,
		resultsFile:  resultsFile,
		results:      csv.NewWriter(resultsFile),
		errorLogFile: errorLogFile,
		errorLog:     csv.NewWriter(errorLogFile),
	}

	header := append([]string{"Name", "ListId"}, s.properties...)
	if err := s.writeRow(s.results, header); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("write results header: %w", err)
	}

	info, err := errorLogFile.Stat()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("stat error log: %w", err)
	}
	if info.Size() == 0 {
		if err := s.writeRow(s.errorLog, errorLogHeader); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("write error log header: %w", err)
		}
	}

	return s, nil
}

// Record implements Sink.
func (s *CSVSink) Record(ctx context.Context, result *core.CheckResult) error {
	if result == nil {
		return errors.New("result is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.results == nil {
		return errors.New("csv sink is closed")
	}

	if err := s.writeRow(s.results, s.resultRow(result)); err != nil {
		return fmt.Errorf("write result row: %w", err)
	}

	if result.IsError() || s.logSuccess {
		if err := s.writeRow(s.errorLog, s.errorRow(result)); err != nil {
			return fmt.Errorf("write error log row: %w", err)
		}
	}

	return nil
}

// Close flushes and closes both files.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.results != nil {
		s.results.Flush()
		errs = append(errs, s.results.Error(), s.resultsFile.Close())
		s.results = nil
	}
	if s.errorLog != nil {
		s.errorLog.Flush()
		errs = append(errs, s.errorLog.Error(), s.errorLogFile.Close())
		s.errorLog = nil
	}
	return errors.Join(errs...)
}

func (s *CSVSink) resultRow(result *core.CheckResult) []string {
	row := make([]string, 0, len(s.properties)+2)
	row = append(row, result.Target.Name, result.Target.ListID)
	for _, property := range s.properties {
		switch {
		case result.IsError():
			row = append(row, CellError)
		case result.HasMatch(property):
			row = append(row, CellTrue)
		default:
			row = append(row, "")
		}
	}
	return row
}

func (s *CSVSink) errorRow(result *core.CheckResult) []string {
	return []string{
		s.now().Format(time.RFC3339Nano),
		result.Target.Name,
		result.Target.ListID,
		strconv.Itoa(result.StatusCode),
		result.Message,
	}
}

func (s *CSVSink) writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (s *CSVSink) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}

func ensureDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- output directories use 0755 like other data directories
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
