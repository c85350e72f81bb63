package testutil

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("export-123")

	assert.Equal(t, "export-123", gen.Generate())
	assert.Equal(t, "export-123", gen.Generate())
}

func TestFixedIDGenerator_EmptyDefault(t *testing.T) {
	assert.Equal(t, "test-export-default", NewFixedIDGenerator("").Generate())
}

func TestSequenceGenerator_InOrder(t *testing.T) {
	gen := NewSequenceGenerator("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = "id"
	}
	gen := NewSequenceGenerator(ids...)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				gen.Generate()
			}
		}()
	}
	wg.Wait()

	assert.Panics(t, func() { gen.Generate() })
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir, "nested/100.json", LegacySnapshot)

	assert.Equal(t, filepath.Join(dir, "nested", "100.json"), path)
	assert.True(t, FileExists(t, path))
	assert.False(t, FileExists(t, filepath.Join(dir, "missing.json")))
}
