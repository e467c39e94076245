// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package rules

import (
	"errors"
	"fmt"

	"go.astrophena.name/newswatch/internal/logger"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Parse evaluates a rules.star config and returns the resulting ruleset.
//
// The config must define a global named rules, constructed with the ruleset
// builtin:
//
//	rules = ruleset(
//	    noise = ["opinion", "rumor"],
//	    official_domains = ["sec.gov"],
//	)
//
// Every argument of ruleset is optional; omitted lists keep their built-in
// defaults, so a config only needs to spell out what it changes.
func Parse(config string, logf logger.Logf) (*Ruleset, error) {
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { logf("%s", msg) },
		},
		"rules.star",
		config,
		starlark.StringDict{
			"ruleset": starlark.NewBuiltin("ruleset", rulesetBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	rv, ok := globals["rules"].(*rulesetValue)
	if !ok {
		return nil, errors.New("rules must be defined and be a ruleset")
	}
	return rv.rs, nil
}

// rulesetValue wraps a Ruleset as a Starlark value.
type rulesetValue struct {
	rs *Ruleset
}

func (v *rulesetValue) String() string        { return "<ruleset>" }
func (v *rulesetValue) Type() string          { return "ruleset" }
func (v *rulesetValue) Freeze()               {} // immutable
func (v *rulesetValue) Truth() starlark.Bool  { return starlark.True }
func (v *rulesetValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", v.Type()) }

func rulesetBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("unexpected positional arguments")
	}

	var (
		material        *starlark.Dict
		noise           *starlark.List
		verbs           *starlark.List
		officialDomains *starlark.List
		macro           *starlark.List
		macroQueries    *starlark.List
	)
	if err := starlark.UnpackArgs("ruleset", args, kwargs,
		"material?", &material,
		"noise?", &noise,
		"verbs?", &verbs,
		"official_domains?", &officialDomains,
		"macro?", &macro,
		"macro_queries?", &macroQueries,
	); err != nil {
		return nil, err
	}

	rs := Default()

	if material != nil {
		m := make(map[string][]string, material.Len())
		for _, kv := range material.Items() {
			label, ok := starlark.AsString(kv[0])
			if !ok {
				return nil, fmt.Errorf("material: category label must be a string, got %s", kv[0].Type())
			}
			list, ok := kv[1].(*starlark.List)
			if !ok {
				return nil, fmt.Errorf("material: keywords of %q must be a list, got %s", label, kv[1].Type())
			}
			keywords, err := toStrings(list, "material."+label)
			if err != nil {
				return nil, err
			}
			m[label] = keywords
		}
		rs.Material = m
	}

	for _, f := range []struct {
		name string
		list *starlark.List
		dst  *[]string
	}{
		{"noise", noise, &rs.Noise},
		{"verbs", verbs, &rs.Verbs},
		{"official_domains", officialDomains, &rs.OfficialDomains},
		{"macro", macro, &rs.Macro},
		{"macro_queries", macroQueries, &rs.MacroQueries},
	} {
		if f.list == nil {
			continue
		}
		vals, err := toStrings(f.list, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = vals
	}

	return &rulesetValue{rs: rs}, nil
}

func toStrings(list *starlark.List, what string) ([]string, error) {
	out := make([]string, 0, list.Len())
	for i := range list.Len() {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s: element %d must be a string, got %s", what, i, list.Index(i).Type())
		}
		out = append(out, s)
	}
	return out, nil
}
