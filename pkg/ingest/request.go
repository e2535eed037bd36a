package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AssimilationRequest asks for one file to be turned into memories.
// Unknown JSON fields are ignored.
type AssimilationRequest struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

// ParseRequest decodes and validates an inbound message body. Failures wrap
// ErrMessageFormat.
func ParseRequest(body []byte) (AssimilationRequest, error) {
	var req AssimilationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return AssimilationRequest{}, fmt.Errorf("%w: %w", ErrMessageFormat, err)
	}

	switch {
	case req.FilePath == "":
		return AssimilationRequest{}, fmt.Errorf("%w: missing file_path", ErrMessageFormat)
	case req.FileName == "":
		return AssimilationRequest{}, fmt.Errorf("%w: missing file_name", ErrMessageFormat)
	}
	return req, nil
}

// Marshal returns the JSON body of the request.
func (r AssimilationRequest) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// NewRequest builds the request for the regular file at path. The path is
// made absolute so any consumer host sharing the filesystem can open it.
func NewRequest(path string) (AssimilationRequest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return AssimilationRequest{}, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return AssimilationRequest{}, err
	}
	if !info.Mode().IsRegular() {
		return AssimilationRequest{}, fmt.Errorf("%s: %w", abs, errNotRegular)
	}
	return AssimilationRequest{FilePath: abs, FileName: filepath.Base(abs)}, nil
}

var errNotRegular = errors.New("not a regular file")
