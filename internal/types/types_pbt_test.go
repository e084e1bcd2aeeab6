package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBackendNameNeverEmpty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("backend name is never empty", prop.ForAll(
		func(backend string) bool {
			job := JobRecord{Backend: backend}
			name := job.BackendName()
			if backend == "" {
				return name == UnknownBackend
			}
			return name == backend
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
