package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"PullbackScanner/internal/model"
)

// LoadRun reads the last scan from a JSON file. Returns nil if the file doesn't exist.
func LoadRun(filePath string) (*model.ScanRun, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var run model.ScanRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveRun writes the scan to a JSON file.
func SaveRun(filePath string, run *model.ScanRun) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
