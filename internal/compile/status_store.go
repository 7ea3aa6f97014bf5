package compile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const metadataFile = "metadata.json"

// statusStore persists status documents as metadata.json sidecar files in
// job directories. Documents are written atomically (temp file + rename)
// so a status query never observes a torn write.
type statusStore struct{}

func (statusStore) write(jobDir string, doc *StatusDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status document: %w", err)
	}
	tmp := filepath.Join(jobDir, metadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("failed to write status document: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(jobDir, metadataFile)); err != nil {
		return fmt.Errorf("failed to publish status document: %w", err)
	}
	return nil
}

func (statusStore) read(jobDir string) (*StatusDocument, error) {
	data, err := os.ReadFile(filepath.Join(jobDir, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &JobNotFoundError{JobID: filepath.Base(jobDir)}
		}
		return nil, fmt.Errorf("failed to read status document: %w", err)
	}
	var doc StatusDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse status document: %w", err)
	}
	return &doc, nil
}
