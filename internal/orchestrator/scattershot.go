package orchestrator

import (
	"context"
	"fmt"

	"github.com/conclave-ai/conclave/internal/invoke"
)

// scattershot fans a single participant out across sampling-parameter
// variations in one round. No winner is computed; all variations are
// returned for comparison.
func (r *sessionRun) scattershot(ctx context.Context) error {
	s := r.session
	base := s.Participants[0]

	count := r.engine.cfg.ScattershotVariations
	if count < 2 {
		count = 2
	}

	descriptors := make([]invoke.Descriptor, count)
	variations := make([]Variation, count)
	for i := 0; i < count; i++ {
		temperature, topP := variationParams(i, count)

		desc := base
		desc.InstanceID = fmt.Sprintf("%s#v%d", base.InstanceID, i+1)
		desc.Params = make(map[string]any, len(base.Params)+2)
		for k, v := range base.Params {
			desc.Params[k] = v
		}
		desc.Params["temperature"] = temperature
		desc.Params["top_p"] = topP

		descriptors[i] = desc
		variations[i] = Variation{VariationID: desc.InstanceID, Temperature: temperature, TopP: topP}
	}

	r.setPhase(PhaseScattering)
	outcomes := r.fanOut(ctx, PhaseScattering, descriptors, func(invoke.Descriptor) string {
		return s.Prompt
	})
	for i := range variations {
		variations[i].Outcome = outcomes[i]
	}

	s.appendRound(&ScattershotRound{BaseInstanceID: base.InstanceID, Variations: variations})
	return nil
}

// variationParams spreads temperature evenly across [0.2, 1.0] and
// alternates top-p between 1.0 and 0.9 so adjacent variations differ on
// both axes.
func variationParams(i, count int) (temperature, topP float64) {
	temperature = 0.2
	if count > 1 {
		temperature += 0.8 * float64(i) / float64(count-1)
	}
	topP = 1.0
	if i%2 == 1 {
		topP = 0.9
	}
	return temperature, topP
}
