// internal/baselines/factory.go

// Package baselines provides the reference systems evaluated by the harness.
package baselines

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mwiater/groundedgeo/internal/appconfig"
	"github.com/mwiater/groundedgeo/internal/harness"
	"github.com/mwiater/groundedgeo/internal/logging"
)

type entry struct {
	description string
	build       func(cfg appconfig.Config) (harness.System, error)
}

var registry = map[string]entry{
	OracleName: {
		description: "answers with the gold answer and cites all gold evidence (upper bound)",
		build:       func(appconfig.Config) (harness.System, error) { return NewOracle(), nil },
	},
	RefuseName: {
		description: "closed-book, always refuses (lower bound)",
		build:       func(appconfig.Config) (harness.System, error) { return NewRefuse(), nil },
	},
	EvidenceName: {
		description: "extractive answer from the preferred piece of evidence",
		build:       func(appconfig.Config) (harness.System, error) { return NewEvidence(), nil },
	},
	LLMName: {
		description: "OpenAI-compatible chat model prompted with question and evidence",
		build: func(cfg appconfig.Config) (harness.System, error) {
			l, err := NewLLM(cfg.LLM)
			if err != nil {
				return nil, err
			}
			return l, nil
		},
	},
}

// Names returns the registered system names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the one-line description of a registered system.
func Describe(name string) string {
	return registry[strings.ToLower(strings.TrimSpace(name))].description
}

// New builds the named system from cfg.
func New(name string, cfg appconfig.Config) (harness.System, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	e, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown system %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	sys, err := e.build(cfg)
	if err != nil {
		logging.LogEvent("system %s unavailable: %v", key, err)
		return nil, fmt.Errorf("build system %q: %w", key, err)
	}
	return sys, nil
}

// NewAll builds every system named in cfg.Systems, in order.
func NewAll(cfg appconfig.Config) ([]harness.System, error) {
	systems := make([]harness.System, 0, len(cfg.Systems))
	for _, name := range cfg.Systems {
		sys, err := New(name, cfg)
		if err != nil {
			return nil, err
		}
		systems = append(systems, sys)
	}
	return systems, nil
}
