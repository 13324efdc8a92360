// Package subdomain maintains the map of subdomain names to the MySQL
// database each one lives in.
package subdomain

import (
	"fmt"
	"os"
	"sort"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
)

// Registry is an immutable view of the configured subdomains. Each entry
// maps a subdomain name (the agency code) to a database name on the shared
// MySQL server.
type Registry struct {
	databases map[string]string
	names     []string
}

// LoadFile reads the subdomain map from a JSON file of the form
// {"comercruz": "db_comercruz", ...}. A missing or unreadable file degrades
// to an empty registry so the service can boot before the map is
// provisioned; the returned error is advisory and only worth a warning log.
// The returned registry is always usable.
func LoadFile(path string) (*Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(nil), nil
	}

	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return New(nil), fmt.Errorf("read subdomains file %s: %w", path, err)
	}
	// Parsed without a koanf instance: subdomain names may contain dots and
	// must not be treated as nested keys.
	parsed, err := koanfjson.Parser().Unmarshal(raw)
	if err != nil {
		return New(nil), fmt.Errorf("parse subdomains file %s: %w", path, err)
	}

	databases := make(map[string]string, len(parsed))
	for name, value := range parsed {
		db, ok := value.(string)
		if !ok {
			return New(nil), fmt.Errorf("subdomains file %s: entry %q is not a string", path, name)
		}
		databases[name] = db
	}
	return New(databases), nil
}

// New builds a Registry from an explicit map. Names are kept sorted so
// iteration order is stable across runs.
func New(databases map[string]string) *Registry {
	names := make([]string, 0, len(databases))
	copied := make(map[string]string, len(databases))
	for name, db := range databases {
		names = append(names, name)
		copied[name] = db
	}
	sort.Strings(names)
	return &Registry{databases: copied, names: names}
}

// Names returns all subdomain names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports how many subdomains are configured.
func (r *Registry) Len() int {
	return len(r.names)
}

// Database resolves the database name for a subdomain.
func (r *Registry) Database(name string) (string, bool) {
	db, ok := r.databases[name]
	return db, ok
}

// Sample returns the first n subdomain names in sorted order, used by the
// connectivity probe to avoid hammering every database.
func (r *Registry) Sample(n int) []string {
	if n > len(r.names) {
		n = len(r.names)
	}
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	copy(out, r.names[:n])
	return out
}
