package upstream

import (
	"context"
	"fmt"
	"os"

	"github.com/couchcryptid/crime-watch/internal/domain"
)

// FileSource reads the report list from a JSON file such as the fixture
// written by cmd/genmock. The file is re-read on every fetch.
type FileSource struct {
	path string
}

// NewFileSource returns a fetcher for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchReports decodes the file as a JSON array of reports.
func (s *FileSource) FetchReports(ctx context.Context) ([]domain.CrimeReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open report file: %w", err)
	}
	defer f.Close()
	return decodeReports(f)
}
