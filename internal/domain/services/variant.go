package services

import (
	"fmt"

	"github.com/ochairo/piko/internal/domain/entities"
)

// VariantPolicy decides whether a variant may be downloaded
type VariantPolicy interface {
	// Name describes the policy in diagnostics
	Name() string

	// Match reports whether the variant satisfies the policy
	Match(v entities.Variant) (bool, error)
}

// VariantPredicate is one named alternative of a DefaultVariantPolicy
type VariantPredicate struct {
	Name  string
	Match func(v entities.Variant) bool
}

// DefaultVariantPolicy matches a universal bundle or any arm64-v8a variant
type DefaultVariantPolicy struct {
	predicates []VariantPredicate
}

// NewDefaultVariantPolicy creates the default variant policy
func NewDefaultVariantPolicy() *DefaultVariantPolicy {
	return &DefaultVariantPolicy{
		predicates: []VariantPredicate{
			{Name: "universal bundle", Match: func(v entities.Variant) bool {
				return v.IsBundle && v.Architecture == entities.ArchUniversal
			}},
			{Name: "arm64-v8a", Match: func(v entities.Variant) bool {
				return v.Architecture == entities.ArchARM64
			}},
		},
	}
}

// Name returns the policy description
func (p *DefaultVariantPolicy) Name() string {
	return "universal bundle or arm64-v8a"
}

// Match reports whether any predicate accepts v
func (p *DefaultVariantPolicy) Match(v entities.Variant) (bool, error) {
	for _, pred := range p.predicates {
		if pred.Match(v) {
			return true, nil
		}
	}
	return false, nil
}

// SelectVariant returns the first variant accepted by policy, in registry order.
// Later matches are never preferred over earlier ones.
func SelectVariant(policy VariantPolicy, variants []entities.Variant) (entities.Variant, error) {
	for _, v := range variants {
		ok, err := policy.Match(v)
		if err != nil {
			return entities.Variant{}, fmt.Errorf("failed to evaluate variant policy on %q: %w", v.Name, err)
		}
		if ok {
			return v, nil
		}
	}

	return entities.Variant{}, NewPipelineError(ResolutionFailure, "variant policy "+policy.Name(),
		fmt.Errorf("%w among %d variants", ErrNoVariant, len(variants)))
}
