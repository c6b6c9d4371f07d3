package vfs

import (
	"context"
	"fmt"
)

// Export copies every file of src into dst.  It returns the number of files
// copied.
func Export(ctx context.Context, src Walker, dst StagingStore) (int, error) {
	n := 0
	err := src.Walk(ctx, func(name string, data []byte) error {
		if err := dst.WriteFile(ctx, name, data); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		n++
		return nil
	})
	return n, err
}
