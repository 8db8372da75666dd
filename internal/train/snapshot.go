package train

import (
	"fmt"
	"path/filepath"

	"github.com/ChizhovVadim/vcgan/internal/ml"
	"github.com/ChizhovVadim/vcgan/internal/model"
)

type ISnapshotWriter interface {
	Write(iteration int) (string, error)
}

// ParamsSnapshot stores a model's parameters as <prefix>_<iteration>.nn in a folder.
type ParamsSnapshot struct {
	folder string
	prefix string
	params []*ml.Param
}

func NewParamsSnapshot(folder, prefix string, params []*ml.Param) *ParamsSnapshot {
	return &ParamsSnapshot{
		folder: folder,
		prefix: prefix,
		params: params,
	}
}

func (s *ParamsSnapshot) Path(iteration int) string {
	return filepath.Join(s.folder, fmt.Sprintf("%v_%v.nn", s.prefix, iteration))
}

func (s *ParamsSnapshot) Write(iteration int) (string, error) {
	var path = s.Path(iteration)
	var err = model.SaveParams(path, s.params)
	if err != nil {
		return "", err
	}
	return path, nil
}
