package capability

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gen2brain/malgo"
)

// backendNames maps the names accepted on the command line and in the config
// file to context backends.
var backendNames = map[string]malgo.Backend{
	"alsa":       malgo.BackendAlsa,
	"pulseaudio": malgo.BackendPulseaudio,
	"pulse":      malgo.BackendPulseaudio,
	"jack":       malgo.BackendJack,
	"coreaudio":  malgo.BackendCoreaudio,
	"wasapi":     malgo.BackendWasapi,
	"oss":        malgo.BackendOss,
	"null":       malgo.BackendNull,
}

// ParseBackends resolves backend names into the context preference list. An
// empty list means the platform default order.
func ParseBackends(names []string) ([]malgo.Backend, error) {
	if len(names) == 0 {
		return nil, nil
	}
	backends := make([]malgo.Backend, 0, len(names))
	for _, name := range names {
		backend, ok := backendNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown audio backend %q (choose from %s)", name, strings.Join(BackendNames(), ", "))
		}
		backends = append(backends, backend)
	}
	return backends, nil
}

// BackendNames lists the accepted backend names, sorted.
func BackendNames() []string {
	names := make([]string, 0, len(backendNames))
	for name := range backendNames {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
