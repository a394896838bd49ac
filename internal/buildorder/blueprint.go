package buildorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Cost is the quantity of each resource needed to build one bot.
type Cost [NumResources]int

// Blueprint is the read-only cost table searched by the engine.
// Costs[k] is the price of one bot producing resource k.
type Blueprint struct {
	ID    int                `validate:"gte=0"`
	Costs [NumResources]Cost `validate:"dive,dive,gte=0"`
}

var validate = validator.New()

// NewBlueprint builds a blueprint from per-bot cost maps. Every bot kind must be
// present; resources missing from a cost map cost nothing.
func NewBlueprint(id int, costs map[Resource]map[Resource]int) (*Blueprint, error) {
	bp := &Blueprint{ID: id}
	for kind, cost := range costs {
		if kind < 0 || int(kind) >= NumResources {
			return nil, fmt.Errorf("blueprint %d: unknown bot kind %d", id, int(kind))
		}
		for res, qty := range cost {
			if res < 0 || int(res) >= NumResources {
				return nil, fmt.Errorf("blueprint %d: %s bot: unknown resource %d", id, kind, int(res))
			}
			bp.Costs[kind][res] = qty
		}
	}
	for _, kind := range Resources {
		if _, ok := costs[kind]; !ok {
			return nil, fmt.Errorf("blueprint %d: missing cost for %s bot", id, kind)
		}
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	return bp, nil
}

// MustBlueprint is NewBlueprint for fixed tables in tests and examples.
func MustBlueprint(id int, costs map[Resource]map[Resource]int) *Blueprint {
	bp, err := NewBlueprint(id, costs)
	if err != nil {
		panic(err)
	}
	return bp
}

// Validate checks that the identifier and every cost are non-negative.
func (bp *Blueprint) Validate() error {
	if err := validate.Struct(bp); err != nil {
		return formatValidationError(bp.ID, err)
	}
	return nil
}

// MaxSpend is the most of res that can be consumed in a single step.
func (bp *Blueprint) MaxSpend(res Resource) int {
	m := 0
	for _, kind := range Resources {
		if c := bp.Costs[kind][res]; c > m {
			m = c
		}
	}
	return m
}

// Fingerprint identifies the cost table independently of the blueprint ID.
func (bp *Blueprint) Fingerprint() string {
	var sb strings.Builder
	for i, kind := range Resources {
		if i > 0 {
			sb.WriteByte('|')
		}
		for j, res := range Resources {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(bp.Costs[kind][res]))
		}
	}
	return sb.String()
}

func (bp *Blueprint) String() string {
	var parts []string
	for _, kind := range Resources {
		var items []string
		for _, res := range Resources {
			if c := bp.Costs[kind][res]; c > 0 {
				items = append(items, fmt.Sprintf("%d %s", c, res))
			}
		}
		if len(items) == 0 {
			items = []string{"nothing"}
		}
		parts = append(parts, fmt.Sprintf("%s bot costs %s", kind, strings.Join(items, " and ")))
	}
	return fmt.Sprintf("Blueprint %d: %s", bp.ID, strings.Join(parts, "; "))
}

func formatValidationError(id int, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fmt.Sprintf("field '%s' failed validation: %s (value: '%v')",
			e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("blueprint %d: validation failed:\n  %s", id, strings.Join(messages, "\n  "))
}
