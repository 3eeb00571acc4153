package train

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch/nn"
)

// CheckpointPath returns checkpoint file path for an epoch (1-based).
func CheckpointPath(dir string, epoch int) string {
	return filepath.Join(dir, fmt.Sprintf("cp-%04d.gt", epoch))
}

// SaveCheckpoint saves all variables of vs to dir for given epoch.
func SaveCheckpoint(vs *nn.VarStore, dir string, epoch int) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating checkpoint directory")
	}
	path := CheckpointPath(dir, epoch)
	if err := vs.Save(path); err != nil {
		return "", errors.Wrapf(err, "saving checkpoint %v", path)
	}

	return path, nil
}

// LoadWeights loads variables into vs. With partial true, variables missing
// from the file are kept as initialized and their names returned.
func LoadWeights(vs *nn.VarStore, path string, partial bool) ([]string, error) {
	modelPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if partial {
		missing, err := vs.LoadPartial(modelPath)
		if err != nil {
			return nil, errors.Wrapf(err, "loading weights %v", modelPath)
		}
		return missing, nil
	}

	if err := vs.Load(modelPath); err != nil {
		return nil, errors.Wrapf(err, "loading weights %v", modelPath)
	}

	return nil, nil
}

// VarInfo is a named variable shape.
type VarInfo struct {
	Name  string
	Shape []int64
}

// Variables returns variables of vs sorted by name and total number of
// parameters.
func Variables(vs *nn.VarStore) ([]VarInfo, int64) {
	vars := vs.Variables()
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)

	var (
		infos []VarInfo
		total int64
	)
	for _, n := range names {
		x := vars[n]
		shape := x.MustSize()
		numel := int64(1)
		for _, d := range shape {
			numel *= d
		}
		total += numel
		infos = append(infos, VarInfo{n, shape})
	}

	return infos, total
}
