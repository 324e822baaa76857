// Package roster loads participant rosters: the set of model instances a
// session fans out to, with optional per-instance roles and sampling
// parameters.
package roster

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/conclave-ai/conclave/internal/errors"
	"github.com/conclave-ai/conclave/internal/invoke"
)

// Participant is one roster entry.
type Participant struct {
	// ID uniquely identifies the instance within the roster.
	ID string `yaml:"id"`
	// Model is the backend model identifier.
	Model string `yaml:"model"`
	// Label is an optional human-readable name.
	Label string `yaml:"label,omitempty"`
	// Role is an optional mode-specific role (synthesizer, judge,
	// coordinator, or a council seat name).
	Role string `yaml:"role,omitempty"`
	// Params are passed through to the invoker (temperature, top_p, ...).
	Params map[string]any `yaml:"params,omitempty"`
}

// Roster is a parsed roster file.
type Roster struct {
	// Participants in declaration order. Order is significant: it determines
	// result ordering and tie-breaks.
	Participants []Participant `yaml:"participants"`
	// AllowedModels restricts participant models to the given glob patterns.
	// Empty means any model is allowed.
	AllowedModels []string `yaml:"allowed_models,omitempty"`
}

// Load reads and validates a roster file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read roster %s", path)
	}
	return Parse(data)
}

// Parse validates roster YAML.
func Parse(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, errors.NewValidationError("invalid roster yaml").WithCause(err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the roster for structural problems: missing fields,
// duplicate instance IDs, and models outside the allowlist.
func (r *Roster) Validate() error {
	if len(r.Participants) == 0 {
		return errors.NewValidationError("roster has no participants").
			WithCause(errors.ErrNoParticipants)
	}

	globs := make([]glob.Glob, 0, len(r.AllowedModels))
	for _, pattern := range r.AllowedModels {
		g, err := glob.Compile(pattern)
		if err != nil {
			return errors.NewValidationError(fmt.Sprintf("invalid model pattern %q", pattern)).WithCause(err)
		}
		globs = append(globs, g)
	}

	seen := make(map[string]struct{}, len(r.Participants))
	for i, p := range r.Participants {
		if p.ID == "" {
			return errors.NewValidationError(fmt.Sprintf("participant %d has no id", i)).
				WithField("id")
		}
		if p.Model == "" {
			return errors.NewValidationError(fmt.Sprintf("participant %q has no model", p.ID)).
				WithField("model")
		}
		if _, dup := seen[p.ID]; dup {
			return errors.NewValidationError(fmt.Sprintf("duplicate participant id %q", p.ID)).
				WithCause(errors.ErrDuplicateInstanceID)
		}
		seen[p.ID] = struct{}{}

		if len(globs) > 0 && !matchesAny(globs, p.Model) {
			return errors.NewValidationError(fmt.Sprintf("model %q for participant %q is not in the allowlist", p.Model, p.ID)).
				WithField("model").WithValue(p.Model)
		}
	}
	return nil
}

func matchesAny(globs []glob.Glob, model string) bool {
	for _, g := range globs {
		if g.Match(model) {
			return true
		}
	}
	return false
}

// Descriptors converts the roster into invocation descriptors, preserving
// declaration order.
func (r *Roster) Descriptors() []invoke.Descriptor {
	descs := make([]invoke.Descriptor, len(r.Participants))
	for i, p := range r.Participants {
		params := make(map[string]any, len(p.Params)+1)
		for k, v := range p.Params {
			params[k] = v
		}
		if p.Role != "" {
			params[invoke.ParamRole] = p.Role
		}
		descs[i] = invoke.Descriptor{
			InstanceID: p.ID,
			ModelID:    p.Model,
			Label:      p.Label,
			Params:     params,
		}
	}
	return descs
}
