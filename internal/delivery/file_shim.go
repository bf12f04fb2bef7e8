package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
)

// FileShim is a testing implementation that records pushed keys in a local
// JSON file instead of calling the storefront.
type FileShim struct {
	filePath string
	mu       sync.Mutex
}

// Ensure FileShim implements Client.
var _ Client = (*FileShim)(nil)

// NewFileShim creates a new file-based shim for testing.
func NewFileShim(filePath string) *FileShim {
	return &FileShim{filePath: filePath}
}

// PushKeys appends the keys under a product/variant bucket in the shim file.
func (f *FileShim) PushKeys(ctx context.Context, externalProductID, externalVariantID string, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records := make(map[string][]string)
	data, err := os.ReadFile(f.filePath)
	if err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parsing shim file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading shim file: %w", err)
	}

	bucket := externalProductID + "/" + externalVariantID
	records[bucket] = append(records[bucket], keys...)

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling shim file: %w", err)
	}
	if err := os.WriteFile(f.filePath, out, 0644); err != nil {
		return fmt.Errorf("writing shim file: %w", err)
	}

	log.Printf("[FileShim] Recorded %d keys for %s", len(keys), bucket)
	return nil
}
