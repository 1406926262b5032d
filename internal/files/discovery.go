package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// lockPrefix marks the owner files Excel leaves next to an open workbook
const lockPrefix = "~$"

// FileInfo represents information about a discovered workbook
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discovery finds workbooks on disk
type Discovery struct {
	basePath   string
	extensions []string
}

// NewDiscovery creates a discovery rooted at basePath that accepts the given
// extensions, with or without the leading dot.
func NewDiscovery(basePath string, extensions []string) *Discovery {
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return &Discovery{basePath: basePath, extensions: exts}
}

// FindWorkbooks lists the workbooks directly inside dir, newest first.
// Subdirectories and Excel lock files are ignored.
func (d *Discovery) FindWorkbooks(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) && d.basePath != "" {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !d.accepts(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// Latest returns the most recently modified workbook in dir
func (d *Discovery) Latest(dir string) (FileInfo, error) {
	files, err := d.FindWorkbooks(dir)
	if err != nil {
		return FileInfo{}, err
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return FileInfo{}, fmt.Errorf("no workbook found in %s", dir)
	}
	return latest, nil
}

func (d *Discovery) accepts(name string) bool {
	if strings.HasPrefix(name, lockPrefix) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range d.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
