package identify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// Method is an identification procedure over a measured response.
type Method func(sig dynamo.Signal, step Step) (dynamo.FOPDT, error)

const (
	MethodSmith      = "smith"
	MethodSundaresan = "sundaresan"
)

// Sundaresan reads the gain as the raw response change; the input step is
// not used.
var methods = map[string]Method{
	MethodSmith: Smith,
	MethodSundaresan: func(sig dynamo.Signal, _ Step) (dynamo.FOPDT, error) {
		return Sundaresan(sig)
	},
}

// Canonical folds a user-supplied method label onto its registry key.
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func Lookup(name string) (Method, error) {
	m, ok := methods[Canonical(name)]
	if !ok {
		return nil, fmt.Errorf("unknown identification method %q (available: %s)", name, strings.Join(List(), ", "))
	}
	return m, nil
}

func List() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
