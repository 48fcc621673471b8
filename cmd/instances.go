package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/lnstsp/internal/instance"
)

// loadInstances loads every path; directories contribute all their *.json
// instances.
func loadInstances(paths []string) ([]*instance.Instance, error) {
	var out []*instance.Instance
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if fi.IsDir() {
			insts, err := instance.LoadDir(p)
			if err != nil {
				return nil, err
			}
			out = append(out, insts...)
			continue
		}
		inst, err := instance.Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no instances found in %v", paths)
	}
	return out, nil
}
