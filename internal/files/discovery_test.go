package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles creates the named files in dir, each one minute newer than the previous
func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("workbook"), 0o644))
		modTime := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
	}
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestNewDiscovery(t *testing.T) {
	d := NewDiscovery("/base", []string{"xlsx", " .XLSM ", ""})

	assert.Equal(t, "/base", d.basePath)
	assert.Equal(t, []string{".xlsx", ".xlsm"}, d.extensions)
}

func TestFindWorkbooks(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		expected []string
	}{
		{
			name:     "newest first",
			files:    []string{"jan.xlsx", "fev.xlsx", "mar.XLSX"},
			expected: []string{"mar.XLSX", "fev.xlsx", "jan.xlsx"},
		},
		{
			name:     "other types ignored",
			files:    []string{"vendas.xlsx", "vendas.csv", "notas.pdf"},
			expected: []string{"vendas.xlsx"},
		},
		{
			name:     "lock files ignored",
			files:    []string{"vendas.xlsx", "~$vendas.xlsx"},
			expected: []string{"vendas.xlsx"},
		},
		{
			name:     "empty directory",
			files:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeFiles(t, tmpDir, tt.files...)

			files, err := NewDiscovery("", []string{".xlsx"}).FindWorkbooks(tmpDir)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(files))

			for _, f := range files {
				assert.Equal(t, filepath.Join(tmpDir, f.Name), f.Path)
				assert.Equal(t, int64(len("workbook")), f.Size)
			}
		})
	}
}

func TestFindWorkbooks_RelativeToBase(t *testing.T) {
	tmpDir := t.TempDir()
	sub := filepath.Join(tmpDir, "relatorios")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "antigos.xlsx"), 0o755))
	writeFiles(t, sub, "vendas.xlsx")

	files, err := NewDiscovery(tmpDir, []string{".xlsx"}).FindWorkbooks("relatorios")
	require.NoError(t, err)
	assert.Equal(t, []string{"vendas.xlsx"}, names(files))
}

func TestFindWorkbooks_MissingDirectory(t *testing.T) {
	_, err := NewDiscovery("", []string{".xlsx"}).FindWorkbooks(filepath.Join(t.TempDir(), "nada"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read directory")
}

func TestLatest(t *testing.T) {
	tmpDir := t.TempDir()
	d := NewDiscovery("", []string{".xlsx"})

	_, err := d.Latest(tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workbook found")

	writeFiles(t, tmpDir, "jan.xlsx", "fev.xlsx")
	latest, err := d.Latest(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "fev.xlsx", latest.Name)
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "a", ModTime: now.Add(-2 * time.Hour)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-time.Hour)},
	}

	latest, ok := GetLatestFile(files)
	assert.True(t, ok)
	assert.Equal(t, "b", latest.Name)

	_, ok = GetLatestFile(nil)
	assert.False(t, ok)
}
