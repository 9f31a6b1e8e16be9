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
	"sort"
	"strconv"
	"strings"

	"github.com/conftree/confmodel/schema"
	"github.com/conftree/confmodel/util"
)

// collEntry is one entry of an IdCollection: its cargo item (a *Value or
// *Node, per elem.Cargo.Kind) tagged with the DataMode it was created under
// (spec.md §4.2 "Autovivify").
type collEntry struct {
	key      string
	value    item
	dataMode Mode
}

// IdCollection is a Hash (string-keyed) or List (integer-indexed) container
// (spec.md §4.2). The ordered index->entry mapping is kept as a slice of
// keys (order) plus a map, rather than a single ordered-map type, mirroring
// the teacher's preference for explicit slices over a generic container.
type IdCollection struct {
	elem   *schema.Element
	parent *Node
	path   *util.Path
	inst   *Instance

	order       []string
	entries     map[string]*collEntry
	nextListIdx int

	contentChecks []contentCheckFunc
}

type contentCheckFunc func(c *IdCollection, check CheckMode, silent bool) error

func (c *IdCollection) itemPath() *util.Path { return c.path }

// Path returns c's location in the tree.
func (c *IdCollection) Path() *util.Path { return c.path }

func newIdCollection(inst *Instance, parent *Node, path *util.Path, elem *schema.Element) *IdCollection {
	c := &IdCollection{elem: elem, parent: parent, path: path, inst: inst, entries: map[string]*collEntry{}}
	c.contentChecks = append(c.contentChecks, duplicateContentCheck)
	return c
}

// IsList reports whether this collection is integer-indexed.
func (c *IdCollection) IsList() bool { return c.elem.Kind == schema.KindList || c.elem.Kind == schema.KindCheckList }

// Keys returns the live index set in collection order, lazily materializing
// default_keys/default_with_init on first enumeration if still empty
// (spec.md §4.2 "Lazy default keys").
func (c *IdCollection) Keys() []string {
	c.ensureDefaultKeys()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *IdCollection) ensureDefaultKeys() {
	if len(c.order) != 0 || len(c.elem.DefaultKeys) == 0 {
		return
	}
	for _, k := range c.elem.DefaultKeys {
		c.Ensure(k)
	}
	for k, initProgram := range c.elem.DefaultWithInit {
		c.Ensure(k)
		_ = initProgram // the init program is run by the loader package against the new cargo; model only guarantees the key exists.
	}
}

func (c *IdCollection) normalizeKey(k string) string {
	switch c.elem.ConvertKeys {
	case schema.ConvertLC:
		return strings.ToLower(k)
	case schema.ConvertUC:
		return strings.ToUpper(k)
	default:
		return k
	}
}

// checkIdx implements spec.md §4.2 "Index check (check_idx(k))".
func (c *IdCollection) checkIdx(k string, creating bool) error {
	path := util.PathString(c.path)
	if c.IsList() {
		n, err := strconv.Atoi(k)
		if err != nil {
			return util.Errf(util.KindWrongValue, path, "list index %q is not an integer", k)
		}
		if n < 0 {
			return util.Errf(util.KindWrongValue, path, "list index %d is negative", n)
		}
	}
	if c.elem.AllowKeysMatching != nil && !c.elem.AllowKeysMatching.MatchString(k) {
		return util.Errf(util.KindUnknownID, path, "key %q does not match allow_keys_matching", k)
	}
	if len(c.elem.AllowKeys) > 0 && !contains(c.elem.AllowKeys, k) {
		return util.Errf(util.KindUnknownID, path, "key %q is not in allow_keys", k)
	}
	if c.elem.AllowKeysFrom != "" {
		live, err := c.parent.resolveChoiceSet(c.elem.AllowKeysFrom)
		if err != nil {
			return err
		}
		if !contains(live, k) {
			return util.Errf(util.KindUnknownID, path, "key %q is not a live key of %s", k, c.elem.AllowKeysFrom)
		}
	}
	if c.elem.FollowKeysFrom != "" {
		live, err := c.parent.resolveChoiceSet(c.elem.FollowKeysFrom)
		if err != nil {
			return err
		}
		if !contains(live, k) {
			return util.Errf(util.KindUnknownID, path, "key %q is not a live key of %s", k, c.elem.FollowKeysFrom)
		}
	}
	if c.elem.MaxNb != nil {
		size := len(c.entries)
		if creating {
			if _, exists := c.entries[k]; !exists {
				size++
			}
		}
		if size > *c.elem.MaxNb {
			return util.Errf(util.KindWrongValue, path, "collection would exceed max_nb=%d", *c.elem.MaxNb)
		}
	}
	for _, rule := range c.elem.WarnIfKeyMatch {
		if rule.Pattern.MatchString(k) {
			c.inst.warn(c.path, orDefault(rule.Msg, "key matches "+rule.Label))
		}
	}
	for _, rule := range c.elem.WarnUnlessKeyMatch {
		if !rule.Pattern.MatchString(k) {
			c.inst.warn(c.path, orDefault(rule.Msg, "key does not match "+rule.Label))
		}
	}
	return nil
}

// Get returns the cargo item at k, autocreating it (and appending k to
// order) if it does not yet exist.
func (c *IdCollection) Get(k string, check CheckMode) (item, error) {
	k = c.normalizeKey(k)
	if e, ok := c.entries[k]; ok {
		return e.value, nil
	}
	if err := c.checkIdx(k, true); err != nil {
		switch check {
		case CheckYes:
			return nil, err
		default:
			c.inst.recordError(c.path, err)
			return nil, nil
		}
	}
	return c.create(k), nil
}

func (c *IdCollection) create(k string) item {
	childPath := util.AppendIndex(c.parent.path, c.elem.Name, k)
	var it item
	if c.elem.Cargo.Kind == schema.KindLeaf {
		it = newValue(c.inst, c.parent, childPath, c.elem.Cargo)
	} else {
		it = newChildNode(c.inst, c.parent, childPath, c.elem.Cargo)
	}
	c.entries[k] = &collEntry{key: k, value: it, dataMode: c.inst.Mode()}
	c.order = append(c.order, k)
	if c.IsList() {
		if n, err := strconv.Atoi(k); err == nil && n >= c.nextListIdx {
			c.nextListIdx = n + 1
		}
	}
	return it
}

// Ensure creates k if absent, returning its cargo item either way (spec.md
// §4.2 "ensure(v)").
func (c *IdCollection) Ensure(k string) item {
	it, err := c.Get(k, CheckNo)
	if err != nil || it == nil {
		return c.create(k)
	}
	return it
}

// StoreLeaf stores raw into the leaf cargo at k (spec.md §4.2 "store(k,
// v)"); it is an error (WrongType) if cargo is not a leaf.
func (c *IdCollection) StoreLeaf(k, raw string, check CheckMode, silent bool) error {
	it, err := c.Get(k, check)
	if err != nil || it == nil {
		return err
	}
	v, ok := it.(*Value)
	if !ok {
		return util.Errf(util.KindWrongType, util.PathString(c.path), "entry %q cargo is not a leaf", k)
	}
	if err := v.Store(raw, check, silent); err != nil {
		return err
	}
	return c.runContentChecks(check, silent)
}

// Delete removes k (spec.md §4.2 "delete(k)").
func (c *IdCollection) Delete(k string) {
	k = c.normalizeKey(k)
	if _, ok := c.entries[k]; !ok {
		return
	}
	delete(c.entries, k)
	c.removeFromOrder(k)
	c.inst.recordChange(util.AppendIndex(c.parent.path, c.elem.Name, k), "deleted", nil, nil, false)
}

func (c *IdCollection) removeFromOrder(k string) {
	for i, o := range c.order {
		if o == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Clear removes every entry (spec.md §4.2 "clear").
func (c *IdCollection) Clear() {
	c.entries = map[string]*collEntry{}
	c.order = nil
	c.inst.recordChange(c.path, "cleared", nil, nil, false)
}

// removeLayeredEntries drops every entry created while Instance was in
// layered mode (used by Instance.LayeredClear).
func (c *IdCollection) removeLayeredEntries() {
	var kept []string
	for _, k := range c.order {
		if e := c.entries[k]; e != nil && e.dataMode == ModeLayered {
			delete(c.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
}

// Move relocates the entry at from to to (spec.md §4.2 "move(from,to)").
func (c *IdCollection) Move(from, to string) error {
	e, ok := c.entries[from]
	if !ok {
		return util.Errf(util.KindUnknownID, util.PathString(c.path), "no entry %q to move", from)
	}
	c.removeFromOrder(from)
	delete(c.entries, from)
	e.key = to
	c.entries[to] = e
	c.order = append(c.order, to)
	return nil
}

// Copy duplicates the entry at from into to (spec.md §4.2 "copy(from,to)").
// Only leaf cargo is supported; Node cargo copy is a deep-structural
// operation the Loader does not currently need.
func (c *IdCollection) Copy(from, to string) error {
	e, ok := c.entries[from]
	if !ok {
		return util.Errf(util.KindUnknownID, util.PathString(c.path), "no entry %q to copy", from)
	}
	v, ok := e.value.(*Value)
	if !ok {
		return util.Errf(util.KindWrongType, util.PathString(c.path), "copy of non-leaf cargo is not supported")
	}
	cur, has, err := v.Fetch(FetchUser, CheckNo, true)
	if err != nil {
		return err
	}
	dst, err := c.Get(to, CheckYes)
	if err != nil {
		return err
	}
	if has {
		return dst.(*Value).Store(cur, CheckYes, false)
	}
	return nil
}

func (c *IdCollection) indexOf(k string) int {
	for i, o := range c.order {
		if o == k {
			return i
		}
	}
	return -1
}

// Swap exchanges the positions of a and b (ordered collections only).
func (c *IdCollection) Swap(a, b string) {
	ia, ib := c.indexOf(a), c.indexOf(b)
	if ia < 0 || ib < 0 {
		return
	}
	c.order[ia], c.order[ib] = c.order[ib], c.order[ia]
}

// MoveUp/MoveDown swap k with its neighbor (spec.md §4.2).
func (c *IdCollection) MoveUp(k string) {
	i := c.indexOf(k)
	if i > 0 {
		c.order[i-1], c.order[i] = c.order[i], c.order[i-1]
	}
}

func (c *IdCollection) MoveDown(k string) {
	i := c.indexOf(k)
	if i >= 0 && i < len(c.order)-1 {
		c.order[i+1], c.order[i] = c.order[i], c.order[i+1]
	}
}

// Sort reorders by the entries' string form (spec.md §4.2 "sort").
func (c *IdCollection) Sort() {
	sort.Strings(c.order)
}

// nextIdx returns the next free list index for push/unshift/insert_at.
func (c *IdCollection) nextIdx() string {
	k := strconv.Itoa(c.nextListIdx)
	return k
}

// Push appends a new leaf entry holding raw at the end of a list (spec.md
// §4.2 "push").
func (c *IdCollection) Push(raw string, check CheckMode) error {
	k := c.nextIdx()
	return c.StoreLeaf(k, raw, check, false)
}

// Unshift inserts raw before every existing list entry, renumbering.
func (c *IdCollection) Unshift(raw string, check CheckMode) error {
	return c.InsertAt(0, raw, check)
}

// InsertAt renumbers list entries from idx onward up by one and stores raw
// at idx (spec.md §4.2 "insert_at").
func (c *IdCollection) InsertAt(idx int, raw string, check CheckMode) error {
	// shift existing numeric keys >= idx up by one, highest first.
	type kv struct {
		n int
		e *collEntry
	}
	var all []kv
	for k, e := range c.entries {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		all = append(all, kv{n, e})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].n > all[j].n })
	for _, item := range all {
		if item.n >= idx {
			delete(c.entries, strconv.Itoa(item.n))
			c.removeFromOrder(strconv.Itoa(item.n))
			newKey := strconv.Itoa(item.n + 1)
			item.e.key = newKey
			c.entries[newKey] = item.e
			c.order = append(c.order, newKey)
		}
	}
	c.nextListIdx++
	return c.StoreLeaf(strconv.Itoa(idx), raw, check, false)
}

// InsertBefore inserts raw immediately before the entry at key before.
func (c *IdCollection) InsertBefore(before, raw string, check CheckMode) error {
	i := c.indexOf(before)
	if i < 0 {
		return util.Errf(util.KindUnknownID, util.PathString(c.path), "no entry %q to insert before", before)
	}
	n, err := strconv.Atoi(before)
	if err != nil {
		return util.Errf(util.KindWrongType, util.PathString(c.path), "insert_before requires an integer index")
	}
	return c.InsertAt(n, raw, check)
}

// Insort inserts raw keeping the list numerically/lexically sorted
// (spec.md §4.2 "insort").
func (c *IdCollection) Insort(raw string, check CheckMode) error {
	if err := c.Push(raw, check); err != nil {
		return err
	}
	c.Sort()
	return nil
}

// runContentChecks runs every registered check_content closure (spec.md
// §4.2 "Content check").
func (c *IdCollection) runContentChecks(check CheckMode, silent bool) error {
	for _, fn := range c.contentChecks {
		if err := fn(c, check, silent); err != nil {
			if check == CheckYes {
				return err
			}
			c.inst.recordError(c.path, err)
		}
	}
	return nil
}

// duplicateContentCheck implements spec.md §4.2's built-in duplicate
// checker over leaf-cargo entries, per the collection's duplicates policy.
func duplicateContentCheck(c *IdCollection, check CheckMode, silent bool) error {
	if c.elem.Duplicates == schema.DuplicatesAllow {
		return nil
	}
	seen := map[string]string{} // value -> first key holding it
	var dupKeys []string
	for _, k := range c.order {
		v, ok := c.entries[k].value.(*Value)
		if !ok {
			continue
		}
		cur, has, _ := v.Fetch(FetchUser, CheckNo, true)
		if !has {
			continue
		}
		if _, exists := seen[cur]; exists {
			dupKeys = append(dupKeys, k)
		} else {
			seen[cur] = k
		}
	}
	if len(dupKeys) == 0 {
		return nil
	}
	switch c.elem.Duplicates {
	case schema.DuplicatesForbid:
		return util.Errf(util.KindWrongValue, util.PathString(c.path), "duplicate values at keys %v", dupKeys)
	case schema.DuplicatesWarn:
		if !silent {
			c.inst.warn(c.path, "duplicate values present, consider apply_fixes")
		}
		return nil
	case schema.DuplicatesSuppress:
		for _, k := range dupKeys {
			c.Delete(k)
		}
		return nil
	}
	return nil
}
