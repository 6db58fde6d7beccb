package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrGatherFailed = errors.New("metrics gather failed")
)

// Families gathers the custom registry and returns the metric family names it
// currently exports.
func Families() ([]string, error) {
	mfs, err := customRegistry.Gather()
	if err != nil {
		return nil, errors.Join(ErrGatherFailed, err)
	}
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	return names, nil
}
