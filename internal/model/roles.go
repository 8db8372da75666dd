package model

import (
	"fmt"

	"github.com/ChizhovVadim/vcgan/internal/ml"
)

// Role names one member of the trainable collection.
type Role int

const (
	Predictor Role = iota
	Discriminator
	Aligner
)

func (r Role) String() string {
	switch r {
	case Predictor:
		return "predictor"
	case Discriminator:
		return "discriminator"
	case Aligner:
		return "aligner"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Models is the closed set of trainable entities. Aligner is optional.
type Models struct {
	Predictor     IPredictor
	Discriminator IDiscriminator
	Aligner       *AlignerNet
}

func (m *Models) Roles() []Role {
	var roles = []Role{Predictor, Discriminator}
	if m.Aligner != nil {
		roles = append(roles, Aligner)
	}
	return roles
}

func (m *Models) Params(role Role) []*ml.Param {
	switch role {
	case Predictor:
		return m.Predictor.Params()
	case Discriminator:
		return m.Discriminator.Params()
	case Aligner:
		if m.Aligner != nil {
			return m.Aligner.Params()
		}
	}
	return nil
}
