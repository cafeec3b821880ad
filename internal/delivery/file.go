// Package delivery ships the daily digest to its outputs: report files on
// disk, the console, email, and X.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"

	"TrendWatch/internal/digest"
)

// WriteArtifacts writes the Markdown and JSON reports for a digest into dir
// and returns their paths.
func WriteArtifacts(d *digest.Digest, dir string) (mdPath, jsonPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create reports dir: %w", err)
	}
	stamp := d.RunDate.Format("2006-01-02")

	md, err := d.Markdown()
	if err != nil {
		return "", "", err
	}
	mdPath = filepath.Join(dir, stamp+".md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}

	payload, err := d.JSON()
	if err != nil {
		return "", "", err
	}
	jsonPath = filepath.Join(dir, stamp+".json")
	if err := os.WriteFile(jsonPath, []byte(payload), 0o644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}
	return mdPath, jsonPath, nil
}
