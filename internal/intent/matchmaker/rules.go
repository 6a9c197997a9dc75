package matchmaker

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gossipnet/intentd/config"
	"github.com/gossipnet/intentd/internal/intent/filter"
	"github.com/gossipnet/intentd/types"
)

const (
	PolicyBarter = "barter"
	PolicyCycle  = "cycle"

	// MaxCycleLimit bounds max-cycle-length in rule files.
	MaxCycleLimit = 8

	DefaultCycleLength    = 4
	DefaultMaxSearchSteps = 20000
)

// Rules is a validated matching rule set.
type Rules struct {
	// Source is the rule source the set was loaded from.
	Source          string
	Policy          string
	MaxCycleLength  int
	MaxSearchSteps  int
	DistinctHolders bool
	// Assets is the asset registry handed to the admission filter. Empty
	// means any well formed denom is accepted.
	Assets []filter.AssetRule
}

type rulesFile struct {
	Policy          string      `toml:"policy"`
	MaxCycleLength  int         `toml:"max-cycle-length"`
	MaxSearchSteps  int         `toml:"max-search-steps"`
	DistinctHolders *bool       `toml:"distinct-holders"`
	Assets          []assetRule `toml:"assets"`
}

type assetRule struct {
	Denom     string `toml:"denom"`
	MaxAmount int64  `toml:"max-amount"`
}

// BarterRules matches two intents directly.
func BarterRules() *Rules {
	return &Rules{
		Source:          config.BuiltinBarter,
		Policy:          PolicyBarter,
		MaxCycleLength:  2,
		MaxSearchSteps:  DefaultMaxSearchSteps,
		DistinctHolders: true,
	}
}

// CycleRules matches closed cycles of up to DefaultCycleLength intents.
func CycleRules() *Rules {
	return &Rules{
		Source:          config.BuiltinCycle,
		Policy:          PolicyCycle,
		MaxCycleLength:  DefaultCycleLength,
		MaxSearchSteps:  DefaultMaxSearchSteps,
		DistinctHolders: true,
	}
}

// LoadRules resolves a rule source: one of the builtin rule sets or the
// path of a TOML rules file, relative paths being resolved against
// rootDir.
func LoadRules(source, rootDir string) (*Rules, error) {
	switch source {
	case config.BuiltinBarter:
		return BarterRules(), nil
	case config.BuiltinCycle:
		return CycleRules(), nil
	case "":
		return nil, errors.New("empty rule source")
	}
	if strings.HasPrefix(source, "builtin:") {
		return nil, fmt.Errorf("unknown builtin rule set %q", source)
	}

	path := source
	if !filepath.IsAbs(path) {
		path = filepath.Join(rootDir, path)
	}

	var rf rulesFile
	md, err := toml.DecodeFile(path, &rf)
	if err != nil {
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("rules %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	rules, err := rf.toRules()
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	rules.Source = source
	return rules, nil
}

func (rf rulesFile) toRules() (*Rules, error) {
	var rules *Rules
	switch rf.Policy {
	case PolicyBarter:
		rules = BarterRules()
	case PolicyCycle, "":
		rules = CycleRules()
	default:
		return nil, fmt.Errorf("unknown policy %q (must be %q or %q)", rf.Policy, PolicyBarter, PolicyCycle)
	}

	switch {
	case rf.MaxCycleLength == 0:
	case rf.MaxCycleLength < 2:
		return nil, fmt.Errorf("max-cycle-length must be at least 2, got %d", rf.MaxCycleLength)
	case rf.MaxCycleLength > MaxCycleLimit:
		return nil, fmt.Errorf("max-cycle-length must be at most %d, got %d", MaxCycleLimit, rf.MaxCycleLength)
	case rules.Policy == PolicyBarter && rf.MaxCycleLength != 2:
		return nil, fmt.Errorf("barter policy only supports max-cycle-length 2, got %d", rf.MaxCycleLength)
	default:
		rules.MaxCycleLength = rf.MaxCycleLength
	}

	switch {
	case rf.MaxSearchSteps < 0:
		return nil, fmt.Errorf("max-search-steps must be positive, got %d", rf.MaxSearchSteps)
	case rf.MaxSearchSteps > 0:
		rules.MaxSearchSteps = rf.MaxSearchSteps
	}

	if rf.DistinctHolders != nil {
		rules.DistinctHolders = *rf.DistinctHolders
	}

	seen := make(map[string]struct{}, len(rf.Assets))
	for i, a := range rf.Assets {
		if err := types.ValidateDenom(a.Denom); err != nil {
			return nil, fmt.Errorf("assets[%d]: %w", i, err)
		}
		if _, ok := seen[a.Denom]; ok {
			return nil, fmt.Errorf("assets[%d]: duplicate denom %s", i, a.Denom)
		}
		if a.MaxAmount < 0 {
			return nil, fmt.Errorf("assets[%d]: max-amount can't be negative", i)
		}
		seen[a.Denom] = struct{}{}
		rules.Assets = append(rules.Assets, filter.AssetRule{Denom: a.Denom, MaxAmount: a.MaxAmount})
	}

	return rules, nil
}
