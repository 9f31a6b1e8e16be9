// Copyright 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/conftree/confmodel/schema"
	"github.com/conftree/confmodel/util"
)

// source identifies one of the six precedence tiers of spec.md §3 Value. A
// fixed-size array indexed by source, rather than a map, mirrors the
// teacher's preference for small typed fields over a generic property bag
// (ytypes/leaf.go keeps typed struct fields for the same reason).
type source int

const (
	srcUser source = iota
	srcPreset
	srcComputed
	srcLayered
	srcDefault
	srcUpstreamDefault
	numSources
)

// FetchMode is the "mode" parameter of Value.Fetch (spec.md §4.1 "Read
// protocol").
type FetchMode int

const (
	FetchBackend FetchMode = iota
	FetchUser
	FetchCustom
	FetchStandard
	FetchPreset
	FetchDefault
	FetchUpstreamDefault
	FetchLayered
	FetchNonUpstreamDefault
	FetchAllowUndef
)

// Value is a typed leaf (spec.md §4.1).
type Value struct {
	elem   *schema.Element
	parent *Node
	path   *util.Path
	inst   *Instance

	slots [numSources]*string

	migrationDone bool
	needsCheck    bool // reentrancy guard, spec.md §5
}

func (v *Value) itemPath() *util.Path { return v.path }

// Path returns v's location in the tree.
func (v *Value) Path() *util.Path { return v.path }

// newValue constructs a Value for elem at path under parent, seeding the
// default/upstream_default slots from schema.
func newValue(inst *Instance, parent *Node, path *util.Path, elem *schema.Element) *Value {
	v := &Value{elem: elem, parent: parent, path: path, inst: inst}
	if elem.Default != nil {
		d := *elem.Default
		v.slots[srcDefault] = &d
	}
	if elem.UpstreamDefault != nil {
		u := *elem.UpstreamDefault
		v.slots[srcUpstreamDefault] = &u
	}
	return v
}

func (v *Value) slotForMode() source {
	switch v.inst.Mode() {
	case ModePreset:
		return srcPreset
	case ModeLayered:
		return srcLayered
	default:
		return srcUser
	}
}

// Clear removes the user-slot value, restoring precedence to the next
// source (spec.md §3 "Writing null to the user slot restores precedence").
func (v *Value) Clear() error {
	return v.store(nil, CheckYes, false)
}

// Store implements spec.md §4.1's store protocol.
func (v *Value) Store(raw string, check CheckMode, silent bool) error {
	return v.store(&raw, check, silent)
}

func (v *Value) store(raw *string, check CheckMode, silent bool) error {
	v.maybeMigrate()

	transformed := false
	pending := raw
	if pending != nil {
		converted := v.applyConvert(*pending)
		if converted != *pending {
			transformed = true
		}
		pending = &converted

		if v.elem.ValueType == schema.TypeBoolean {
			b, err := v.normalizeBool(*pending)
			if err != nil {
				if check == CheckYes {
					return err
				}
				v.inst.recordError(v.path, err)
				if check == CheckSkip {
					return nil
				}
			} else {
				if b != *pending {
					transformed = true
				}
				pending = &b
			}
		}

		if v.elem.Replace != nil {
			if repl, ok := v.elem.Replace[*pending]; ok && repl != *pending {
				pending = &repl
				transformed = true
			}
		}
	}

	// step 2: empty + mandatory substitutes the resolved non-user value.
	if pending != nil && *pending == "" && v.elem.Mandatory {
		if std, err := v.resolveChain(FetchStandard); err == nil && std != nil {
			pending = std
		}
	}

	if pending != nil {
		if err := v.validate(*pending, false, silent); err != nil {
			switch check {
			case CheckYes:
				return err
			case CheckSkip:
				v.inst.recordError(v.path, err)
				if !silent {
					v.inst.warn(v.path, err.Error())
				}
				return nil
			case CheckNo:
				v.inst.recordError(v.path, err)
			}
		}
	}

	slot := v.slotForMode()
	old := v.slots[slot]
	conflict := v.inst.Mode() == ModeInitialLoad && old != nil && pending != nil && *old != *pending
	if (old == nil) != (pending == nil) || (old != nil && pending != nil && *old != *pending) {
		v.slots[slot] = pending
		v.inst.recordChange(v.path, "", old, pending, transformed || conflict)
	}
	return nil
}

func (v *Value) applyConvert(s string) string {
	switch v.elem.ConvertCase {
	case schema.ConvertLC:
		return strings.ToLower(s)
	case schema.ConvertUC:
		return strings.ToUpper(s)
	default:
		return s
	}
}

// normalizeBool implements spec.md §4.1 "Boolean normalization".
func (v *Value) normalizeBool(s string) (string, error) {
	trueSet := map[string]bool{"y": true, "yes": true, "true": true, "on": true, "1": true}
	falseSet := map[string]bool{"n": true, "no": true, "false": true, "off": true, "0": true, "": true}
	if v.elem.WriteAs[1] != "" {
		trueSet[v.elem.WriteAs[1]] = true
	}
	if v.elem.WriteAs[0] != "" {
		falseSet[v.elem.WriteAs[0]] = true
	}
	switch {
	case trueSet[s]:
		return "true", nil
	case falseSet[s]:
		return "false", nil
	default:
		return "", util.Errf(util.KindWrongValue, util.PathString(v.path), "invalid boolean value %q", s)
	}
}

// writeAsString maps a canonical "true"/"false" back through write_as for
// display (spec.md §4.1 "For booleans with write_as...").
func (v *Value) writeAsString(s string) string {
	if v.elem.ValueType != schema.TypeBoolean {
		return s
	}
	if s == "true" && v.elem.WriteAs[1] != "" {
		return v.elem.WriteAs[1]
	}
	if s == "false" && v.elem.WriteAs[0] != "" {
		return v.elem.WriteAs[0]
	}
	return s
}

// Fetch implements spec.md §4.1's read protocol.
func (v *Value) Fetch(mode FetchMode, check CheckMode, silent bool) (string, bool, error) {
	v.maybeMigrate()

	var resolved *string
	var err error
	mandatoryApplies := false

	switch mode {
	case FetchPreset:
		resolved = v.slots[srcPreset]
	case FetchDefault:
		resolved = v.slots[srcDefault]
	case FetchUpstreamDefault:
		resolved = v.slots[srcUpstreamDefault]
	case FetchLayered:
		resolved = v.slots[srcLayered]
	case FetchBackend:
		resolved, err = v.resolveChain(FetchBackend)
		mandatoryApplies = true
	case FetchStandard:
		resolved, err = v.resolveChain(FetchStandard)
		mandatoryApplies = true
	case FetchNonUpstreamDefault:
		resolved, err = v.resolveChain(FetchNonUpstreamDefault)
		mandatoryApplies = true
	case FetchAllowUndef:
		resolved, err = v.resolveChain(FetchUser)
	case FetchCustom:
		resolved, err = v.resolveCustom()
	case FetchUser:
		resolved, err = v.resolveChain(FetchUser)
		mandatoryApplies = true
	default:
		resolved, err = v.resolveChain(FetchUser)
		mandatoryApplies = true
	}
	if err != nil {
		return "", false, err
	}

	if resolved == nil && mandatoryApplies && v.elem.Mandatory && mode != FetchAllowUndef {
		uerr := util.Errf(util.KindUserError, util.PathString(v.path), "mandatory value is empty")
		switch check {
		case CheckYes:
			return "", false, uerr
		default:
			v.inst.recordError(v.path, uerr)
			return "", false, nil
		}
	}
	if resolved == nil {
		return "", false, nil
	}

	out := *resolved
	if v.elem.ReplaceFollow != "" {
		if repl, changed, rerr := v.resolveReplaceFollow(out); rerr == nil && changed {
			old := out
			out = repl
			v.inst.recordChange(v.path, "replace_follow substitution", &old, &out, true)
		}
	}
	return v.writeAsString(out), true, nil
}

// resolveChain walks the precedence chain for the given mode (backend,
// user, standard, non_upstream_default) per spec.md §4.1.
func (v *Value) resolveChain(mode FetchMode) (*string, error) {
	computed, err := v.computedSlot()
	if err != nil {
		return nil, err
	}
	chain := func(order []source) *string {
		for _, s := range order {
			if s == srcComputed {
				if computed != nil {
					return computed
				}
				continue
			}
			if v.slots[s] != nil {
				return v.slots[s]
			}
		}
		return nil
	}
	switch mode {
	case FetchBackend:
		return chain([]source{srcUser, srcPreset, srcComputed, srcDefault}), nil
	case FetchStandard:
		return chain([]source{srcPreset, srcComputed, srcLayered, srcDefault, srcUpstreamDefault}), nil
	case FetchNonUpstreamDefault:
		return chain([]source{srcUser, srcPreset, srcComputed, srcLayered, srcDefault}), nil
	default: // FetchUser and FetchAllowUndef
		return chain([]source{srcUser, srcPreset, srcComputed, srcLayered, srcDefault, srcUpstreamDefault}), nil
	}
}

// resolveCustom implements "custom returns the user slot only if it differs
// from preset/computed/default/layered/upstream_default; else null."
func (v *Value) resolveCustom() (*string, error) {
	if v.slots[srcUser] == nil {
		return nil, nil
	}
	lower, err := v.resolveChain(FetchStandard)
	if err != nil {
		return nil, err
	}
	if lower != nil && *lower == *v.slots[srcUser] {
		return nil, nil
	}
	return v.slots[srcUser], nil
}

// HasData implements spec.md §3 "has_data is true iff reading in custom
// mode ... yields a value".
func (v *Value) HasData() bool {
	r, _ := v.resolveCustom()
	return r != nil
}

// computedSlot evaluates compute's formula fresh on every call (spec.md
// §4.1 "the value is produced by evaluating the formula on each read").
func (v *Value) computedSlot() (*string, error) {
	if v.elem.Compute == nil {
		return nil, nil
	}
	vals, err := v.resolveVariables(v.elem.Compute.Variables)
	if err != nil {
		return nil, err
	}
	out, err := v.elem.Compute.Formula(vals)
	if err != nil {
		return nil, util.Errf(util.KindModelError, util.PathString(v.path), "compute formula: %v", err)
	}
	return &out, nil
}

func (v *Value) resolveVariables(paths []string) ([]string, error) {
	vals := make([]string, len(paths))
	for i, p := range paths {
		s, err := v.parent.resolveValuePath(p)
		if err != nil {
			return nil, err
		}
		vals[i] = s
	}
	return vals, nil
}

func (v *Value) resolveReplaceFollow(current string) (string, bool, error) {
	repl, err := v.parent.resolveHashValue(v.elem.ReplaceFollow, current)
	if err != nil || repl == "" {
		return current, false, nil
	}
	return repl, repl != current, nil
}

// maybeMigrate runs migrate_from once, lazily, on first access after
// initial load if the user slot is empty (spec.md §4.1 "Migration").
func (v *Value) maybeMigrate() {
	if v.migrationDone || v.elem.MigrateFrom == nil || v.slots[srcUser] != nil {
		return
	}
	v.migrationDone = true
	vals, err := v.resolveVariables(v.elem.MigrateFrom.Variables)
	if err != nil {
		v.inst.recordError(v.path, err)
		return
	}
	out, err := v.elem.MigrateFrom.Formula(vals)
	if err != nil {
		v.inst.recordError(v.path, util.Errf(util.KindModelError, util.PathString(v.path), "migrate_from formula: %v", err))
		return
	}
	if err := v.validate(out, false, true); err != nil {
		v.inst.recordError(v.path, err)
		return
	}
	old := v.slots[srcUser]
	v.slots[srcUser] = &out
	v.inst.recordChange(v.path, "migrated value", old, &out, true)
}

// choiceSet resolves the live enum/reference membership set: static Choice,
// or refer_to/computed_refer_to's referenced collection keys.
func (v *Value) choiceSet() ([]string, error) {
	if len(v.elem.Choice) > 0 {
		return v.elem.Choice, nil
	}
	if v.elem.ReferTo != "" {
		return v.parent.resolveChoiceSet(v.elem.ReferTo)
	}
	if v.elem.ComputedReferTo != nil {
		vals, err := v.resolveVariables(v.elem.ComputedReferTo.Variables)
		if err != nil {
			return nil, err
		}
		path, err := v.elem.ComputedReferTo.Formula(vals)
		if err != nil {
			return nil, util.Errf(util.KindModelError, util.PathString(v.path), "computed_refer_to formula: %v", err)
		}
		return v.parent.resolveChoiceSet(path)
	}
	return nil, nil
}

// --- validation pipeline (spec.md §4.1 "Validation rules") ---

func (v *Value) validate(pending string, forFix, silent bool) error {
	if err := v.validateType(pending); err != nil {
		return err
	}
	if err := v.validateBounds(pending); err != nil {
		return err
	}
	if v.elem.Match != nil && !v.elem.Match.MatchString(pending) {
		return util.Errf(util.KindWrongValue, util.PathString(v.path), "value %q does not match required pattern", pending)
	}
	if v.elem.Grammar != nil && !v.elem.Grammar.Match(pending) {
		msg := v.elem.Grammar.Warning
		if msg == "" {
			msg = fmt.Sprintf("value %q rejected by grammar", pending)
		}
		return util.Errf(util.KindWrongValue, util.PathString(v.path), msg)
	}
	for _, rule := range v.elem.WarnIfMatch {
		if rule.Pattern.MatchString(pending) && !silent {
			v.inst.warn(v.path, orDefault(rule.Msg, "value matches "+rule.Label))
		}
	}
	for _, rule := range v.elem.WarnUnlessMatch {
		if !rule.Pattern.MatchString(pending) && !silent {
			v.inst.warn(v.path, orDefault(rule.Msg, "value does not match "+rule.Label))
		}
	}
	for _, rule := range v.elem.Assert {
		if !rule.Check(pending) {
			return util.Errf(util.KindWrongValue, util.PathString(v.path), orDefault(rule.Msg, "assertion "+rule.Label+" failed"))
		}
	}
	for _, rule := range v.elem.WarnIf {
		if rule.Check(pending) && !silent {
			v.inst.warn(v.path, orDefault(rule.Msg, "warn_if "+rule.Label+" matched"))
		}
	}
	for _, rule := range v.elem.WarnUnless {
		if !rule.Check(pending) && !silent {
			v.inst.warn(v.path, orDefault(rule.Msg, "warn_unless "+rule.Label+" failed"))
		}
	}
	if v.elem.Warn != "" && !silent {
		v.inst.warn(v.path, v.elem.Warn)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var numRe = regexp.MustCompile(`^-?[0-9]+$`)
var numberRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

func (v *Value) validateType(pending string) error {
	path := util.PathString(v.path)
	switch v.elem.ValueType {
	case schema.TypeInteger:
		if !numRe.MatchString(pending) {
			return util.Errf(util.KindWrongValue, path, "%q is not an integer", pending)
		}
	case schema.TypeNumber:
		if !numberRe.MatchString(pending) {
			return util.Errf(util.KindWrongValue, path, "%q is not a number", pending)
		}
	case schema.TypeEnum, schema.TypeReference:
		set, err := v.choiceSet()
		if err != nil {
			return err
		}
		if !contains(set, pending) {
			return util.Errf(util.KindWrongValue, path, "%q is not one of %v", pending, set)
		}
	case schema.TypeUniline:
		if strings.Contains(pending, "\n") {
			return util.Errf(util.KindWrongValue, path, "uniline value must not contain a newline")
		}
	case schema.TypeBoolean:
		if pending != "true" && pending != "false" {
			return util.Errf(util.KindWrongValue, path, "%q is not a normalized boolean", pending)
		}
	case schema.TypeFile, schema.TypeDir:
		// existence/kind mismatch is a warning, not an error (spec.md §4.1
		// validation rule 1); left to a backend-aware caller since model
		// has no filesystem access contract of its own.
	}
	return nil
}

func contains(set []string, s string) bool {
	for _, c := range set {
		if c == s {
			return true
		}
	}
	return false
}

func (v *Value) validateBounds(pending string) error {
	if v.elem.Min == nil && v.elem.Max == nil {
		return nil
	}
	f, err := strconv.ParseFloat(pending, 64)
	if err != nil {
		return nil // type check already rejected non-numeric values
	}
	if v.elem.Min != nil && f < *v.elem.Min {
		return util.Errf(util.KindWrongValue, util.PathString(v.path), "%v is below min %v", f, *v.elem.Min)
	}
	if v.elem.Max != nil && f > *v.elem.Max {
		return util.Errf(util.KindWrongValue, util.PathString(v.path), "%v is above max %v", f, *v.elem.Max)
	}
	return nil
}

// --- fix protocol (spec.md §4.1 "Fix protocol") ---

const maxFixIterations = 20

type violatedRule struct {
	msg string
	fix schema.FixFunc
}

// pendingFixes returns the rules pending would violate, each with a fix.
func (v *Value) pendingFixes(pending string) []violatedRule {
	var out []violatedRule
	for _, r := range v.elem.WarnIfMatch {
		if r.Pattern.MatchString(pending) && r.Fix != nil {
			out = append(out, violatedRule{msg: orDefault(r.Msg, "warn_if_match "+r.Label), fix: r.Fix})
		}
	}
	for _, r := range v.elem.WarnUnlessMatch {
		if !r.Pattern.MatchString(pending) && r.Fix != nil {
			out = append(out, violatedRule{msg: orDefault(r.Msg, "warn_unless_match "+r.Label), fix: r.Fix})
		}
	}
	for _, r := range v.elem.Assert {
		if !r.Check(pending) && r.Fix != nil {
			out = append(out, violatedRule{msg: orDefault(r.Msg, "assert "+r.Label), fix: r.Fix})
		}
	}
	for _, r := range v.elem.WarnIf {
		if r.Check(pending) && r.Fix != nil {
			out = append(out, violatedRule{msg: orDefault(r.Msg, "warn_if "+r.Label), fix: r.Fix})
		}
	}
	for _, r := range v.elem.WarnUnless {
		if !r.Check(pending) && r.Fix != nil {
			out = append(out, violatedRule{msg: orDefault(r.Msg, "warn_unless "+r.Label), fix: r.Fix})
		}
	}
	return out
}

// PendingFixCount reports how many rules the current value violates that
// carry a fix (spec.md §8 scenario 3 "has_fixes").
func (v *Value) PendingFixCount() int {
	cur, _, _ := v.Fetch(FetchUser, CheckNo, true)
	return len(v.pendingFixes(cur))
}

// ApplyFixes re-runs validation in fix mode, applying every violated rule's
// fix closure, until no more fixes fire or the 20-iteration hard cap is hit
// (spec.md §4.1 "Fix protocol", §9 "cap fix loops at 20").
func (v *Value) ApplyFixes() error {
	cur, ok, err := v.Fetch(FetchUser, CheckNo, true)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	original := cur
	var lastMsgs []string
	for i := 0; i < maxFixIterations; i++ {
		rules := v.pendingFixes(cur)
		if len(rules) == 0 {
			break
		}
		lastMsgs = lastMsgs[:0]
		for _, r := range rules {
			cur = r.fix(cur)
			lastMsgs = append(lastMsgs, r.msg)
		}
		if i == maxFixIterations-1 {
			return util.Errf(util.KindModelError, util.PathString(v.path), "fix loop exceeded %d iterations", maxFixIterations)
		}
	}
	if cur == original {
		return nil
	}
	slot := v.slotForMode()
	old := v.slots[slot]
	v.slots[slot] = &cur
	note := "applied fix"
	if len(lastMsgs) > 0 {
		note = "applied fix: " + strings.Join(lastMsgs, "; ")
	}
	v.inst.recordChange(v.path, note, old, &cur, true)
	return nil
}
