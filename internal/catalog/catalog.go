// Package catalog implements the Model Catalog: a persistent directory of
// ModelDescriptors backed by a single JSON file under the cache root. It
// is single-writer/many-reader — mutations take an exclusive lock and
// readers always observe either the pre- or post-mutation state, never a
// partial write, because saves go through write-temp-then-rename.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"autoforge/internal/apperr"
	"autoforge/internal/logging"
	"autoforge/internal/types"
)

// schemaVersion is bumped whenever the on-disk catalog shape changes.
const schemaVersion = 1

type catalogFile struct {
	SchemaVersion int                               `json:"schema_version"`
	Descriptors   map[string]types.ModelDescriptor `json:"descriptors"`
}

// Catalog is a JSON-persisted directory of model descriptors.
type Catalog struct {
	mu          sync.RWMutex
	path        string
	descriptors map[string]types.ModelDescriptor
}

// Open loads path, seeding a default catalog and writing it if the file
// does not yet exist.
func Open(path string) (*Catalog, error) {
	c := &Catalog{path: path, descriptors: map[string]types.ModelDescriptor{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.CatalogDebug("no catalog at %s, seeding default", path)
			c.descriptors = defaultCatalog()
			if err := c.save(); err != nil {
				return nil, err
			}
			return c, nil
		}
		return nil, &apperr.IOFailureError{Op: "read", Path: path, Cause: err}
	}

	var cf catalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, &apperr.IOFailureError{Op: "unmarshal", Path: path, Cause: err}
	}
	if cf.Descriptors == nil {
		cf.Descriptors = map[string]types.ModelDescriptor{}
	}
	c.descriptors = cf.Descriptors
	return c, nil
}

// defaultCatalog seeds a small set of example descriptors so a freshly
// initialized cache directory has something to acquire() against.
func defaultCatalog() map[string]types.ModelDescriptor {
	return map[string]types.ModelDescriptor{
		"gpt2-small": {
			ID: "gpt2-small", Name: "GPT-2 Small", Version: "1.0",
			Modality: types.ModalityText, Backend: types.BackendCandle,
			MemoryBytesRequired: 500 * 1 << 20,
		},
		"bert-base": {
			ID: "bert-base", Name: "BERT Base", Version: "1.0",
			Modality: types.ModalityText, Backend: types.BackendPyTorch,
			MemoryBytesRequired: 440 * 1 << 20,
		},
		"resnet50": {
			ID: "resnet50", Name: "ResNet-50", Version: "1.0",
			Modality: types.ModalityImage, Backend: types.BackendONNX,
			MemoryBytesRequired: 100 * 1 << 20,
		},
	}
}

// List returns a snapshot of every registered descriptor.
func (c *Catalog) List() []types.ModelDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.ModelDescriptor, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		out = append(out, d)
	}
	return out
}

// Get returns the descriptor for id, or (zero, false) on a catalog miss.
func (c *Catalog) Get(id string) (types.ModelDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.descriptors[id]
	return d, ok
}

// Add registers a new descriptor (or replaces an existing one with the
// same id) and persists the catalog.
func (c *Catalog) Add(d types.ModelDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors[d.ID] = d
	return c.save()
}

// Remove deletes a descriptor by id and persists the catalog. Removing an
// absent id is a no-op, not an error.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.descriptors, id)
	return c.save()
}

// Download populates a descriptor's LocalPath, simulating an artifact
// fetch by writing a small placeholder blob to cacheDir. The catalog does
// not interpret the blob's contents.
func (c *Catalog) Download(id string, cacheDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.descriptors[id]
	if !ok {
		return &apperr.ModelNotFoundError{ID: id}
	}
	if d.LocalPath != "" {
		return nil
	}

	blobPath := filepath.Join(cacheDir, id+".model")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return &apperr.IOFailureError{Op: "mkdir", Path: cacheDir, Cause: err}
	}
	placeholder := "placeholder model data for " + id
	if err := os.WriteFile(blobPath, []byte(placeholder), 0644); err != nil {
		return &apperr.IOFailureError{Op: "write", Path: blobPath, Cause: err}
	}

	d.LocalPath = blobPath
	c.descriptors[id] = d
	return c.save()
}

// save persists the current descriptor map via write-temp-then-rename so
// concurrent readers never observe a partially written file.
func (c *Catalog) save() error {
	cf := catalogFile{SchemaVersion: schemaVersion, Descriptors: c.descriptors}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &apperr.IOFailureError{Op: "mkdir", Path: dir, Cause: err}
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json.tmp")
	if err != nil {
		return &apperr.IOFailureError{Op: "create temp", Path: dir, Cause: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &apperr.IOFailureError{Op: "write", Path: tmpName, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &apperr.IOFailureError{Op: "close", Path: tmpName, Cause: err}
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return &apperr.IOFailureError{Op: "rename", Path: c.path, Cause: err}
	}
	logging.CatalogDebug("saved catalog to %s (%d descriptors)", c.path, len(c.descriptors))
	return nil
}
