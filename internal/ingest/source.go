package ingest

import (
	"bytes"
	"context"
	"io"
	"os"

	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/logging"
	"github.com/job-insights/internal/types"
)

// Source produces a batch of job records
type Source interface {
	// Name identifies the source in logs, metrics and snapshots
	Name() string
	Load(ctx context.Context) ([]types.JobRecord, error)
}

// LoadFile reads a job export from disk
func LoadFile(path string) ([]types.JobRecord, *ParseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.NewSourceError(path, 0, err)
	}
	defer f.Close()

	return ParseCSV(f)
}

func logStats(ctx context.Context, source string, stats *ParseStats) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"source":        source,
		"rows":          stats.Rows,
		"kept":          stats.Kept,
		"skippedRows":   stats.SkippedRows,
		"unknownStatus": stats.UnknownStatus,
		"invalidShots":  stats.InvalidShots,
	})
	if stats.SkippedRows > 0 || stats.UnknownStatus > 0 || stats.InvalidShots > 0 {
		logger.Warn("Job export contained malformed rows")
		return
	}
	logger.Debug("Job export parsed")
}

// FileSource loads jobs from a CSV file on every call
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Load(ctx context.Context) ([]types.JobRecord, error) {
	jobs, stats, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	logStats(ctx, s.Name(), stats)
	return jobs, nil
}

// URLSource downloads a CSV export over HTTP
type URLSource struct {
	URL     string
	Fetcher *Fetcher
}

// NewURLSource creates a URL-backed source using fetcher
func NewURLSource(url string, fetcher *Fetcher) *URLSource {
	return &URLSource{URL: url, Fetcher: fetcher}
}

func (s *URLSource) Name() string { return "url:" + s.URL }

func (s *URLSource) Load(ctx context.Context) ([]types.JobRecord, error) {
	jobs, stats, err := s.Fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	logStats(ctx, s.Name(), stats)
	return jobs, nil
}

// ReaderSource parses an in-memory export, such as an uploaded body
type ReaderSource struct {
	Label string
	Data  []byte
}

// NewReaderSource reads all of r up front so the source can be loaded repeatedly
func NewReaderSource(label string, r io.Reader) (*ReaderSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewSourceError(label, 0, err)
	}
	return &ReaderSource{Label: label, Data: data}, nil
}

func (s *ReaderSource) Name() string { return s.Label }

func (s *ReaderSource) Load(ctx context.Context) ([]types.JobRecord, error) {
	jobs, stats, err := ParseCSV(bytes.NewReader(s.Data))
	if err != nil {
		return nil, err
	}
	logStats(ctx, s.Name(), stats)
	return jobs, nil
}
