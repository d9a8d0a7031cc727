// Package paths provides the standardized on-disk layout for service data.
//
// This package defines the canonical directory structure used by the
// extension registry, the packer, and the embedded store. All filesystem
// operations resolve locations through a Layout to keep the structure
// consistent.
//
// # Directory Structure
//
//	<root>/                (default ~/.glasswing)
//	  ├── extensions/      (unpacked extension sources)
//	  ├── packed/          (packed extension artifacts)
//	  └── glasswing.db     (embedded registry store)
//
// # Usage
//
//	import "github.com/glasswinglabs/glasswing/internal/shared/paths"
//
//	layout := paths.NewLayout(cfg.Extensions.DataDir)
//	if err := layout.Ensure(); err != nil {
//	    return err
//	}
//	dbPath := layout.Database()
package paths
