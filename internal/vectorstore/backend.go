package vectorstore

import "fmt"

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open builds the named backend for path.
func Open(name, path string) (Backend, error) {
	switch name {
	case "", BackendJSON:
		return NewJSONFile(path), nil
	case BackendSQLite:
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", name)
	}
}
