// Package roster loads the personnel seed file and adds its names to the ledger on startup
package roster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"

	"github.com/cozummakina/montaj/app/ledger"
)

// File is the structure of the roster yaml file
type File struct {
	Personnel []string `yaml:"personnel" json:"personnel" jsonschema:"description=names of installation personnel,uniqueItems=true"`
}

// Adder adds a single person, implemented by ledger.Ledger
type Adder interface {
	AddPersonnel(ctx context.Context, access ledger.Access, name string) error
}

// Load reads and parses roster file. Names are trimmed and duplicates removed.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from cli options
	if err != nil {
		return File{}, fmt.Errorf("can't read roster %s: %w", path, err)
	}

	var f File
	if err = yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("can't parse roster %s: %w", path, err)
	}

	seen := map[string]bool{}
	names := make([]string, 0, len(f.Personnel))
	for _, n := range f.Personnel {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		if strings.Contains(n, ",") {
			return File{}, fmt.Errorf("invalid name %q in roster %s: %w", n, path, ledger.ErrInvalidName)
		}
		seen[n] = true
		names = append(names, n)
	}
	f.Personnel = names
	return f, nil
}

// Seed adds all roster names missing in the ledger, returns the number of added names
func Seed(ctx context.Context, l Adder, f File) (int, error) {
	added := 0
	for _, n := range f.Personnel {
		err := l.AddPersonnel(ctx, ledger.AccessAdmin, n)
		switch {
		case err == nil:
			added++
		case errors.Is(err, ledger.ErrPersonnelExists):
		default:
			return added, fmt.Errorf("can't add %q: %w", n, err)
		}
	}
	log.Printf("[INFO] roster seeded, %d of %d names added", added, len(f.Personnel))
	return added, nil
}
