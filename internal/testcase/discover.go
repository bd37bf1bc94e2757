package testcase

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"tcrun/internal/resource"
	"tcrun/pkg/logging"
)

// Discover returns the test-case documents under dir, relative to dir and
// sorted. Only documents whose top level is a list count: single test-case
// documents used as prerequisites are skipped.
func Discover(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !resource.IsDocument(path) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !isCollection(path, data) {
			logging.Debug("TestCaseRepo", "Skipping %s, not a list of test cases", path)
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func isCollection(path string, data []byte) bool {
	if !resource.IsYAML(path) {
		return bytes.HasPrefix(bytes.TrimSpace(data), []byte("["))
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return false
	}
	return doc.Content[0].Kind == yaml.SequenceNode
}
