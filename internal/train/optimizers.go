package train

import (
	"github.com/ChizhovVadim/vcgan/internal/ml"
	"github.com/ChizhovVadim/vcgan/internal/model"
)

type IOptimizer interface {
	Update(backward func()) error
}

// Optimizers holds one independent optimizer per trainable role.
type Optimizers struct {
	Predictor     IOptimizer
	Discriminator IOptimizer
	Aligner       IOptimizer
}

func NewOptimizers(models *model.Models, config ml.AdamConfig) *Optimizers {
	var result = &Optimizers{}
	for _, role := range models.Roles() {
		var opt = ml.NewAdam(config)
		opt.Setup(models.Params(role))
		result.set(role, opt)
	}
	return result
}

func (o *Optimizers) set(role model.Role, opt IOptimizer) {
	switch role {
	case model.Predictor:
		o.Predictor = opt
	case model.Discriminator:
		o.Discriminator = opt
	case model.Aligner:
		o.Aligner = opt
	}
}

func (o *Optimizers) Get(role model.Role) IOptimizer {
	switch role {
	case model.Predictor:
		return o.Predictor
	case model.Discriminator:
		return o.Discriminator
	case model.Aligner:
		return o.Aligner
	}
	return nil
}
