// Package keysync computes the key-set difference between the primary
// locale and a target locale, deciding what must be translated, dropped,
// or left alone. Only key sets are compared: a changed primary text behind
// an existing key is deliberately not detected (no value-level diffing).
package keysync

import "github.com/minios-linux/locsync/units"

// Diff is the three-way key partition for one target locale. The sets are
// disjoint; order follows the primary file for ToTranslate/Unchanged and
// the target file for ToRemove, so logs stay readable.
type Diff struct {
	// ToTranslate holds primary keys missing from the target.
	ToTranslate []string
	// ToRemove holds target keys no longer present in the primary.
	ToRemove []string
	// Unchanged holds keys present in both; their target values are kept.
	Unchanged []string
}

// Empty reports whether the target is already fully synchronized.
func (d *Diff) Empty() bool {
	return len(d.ToTranslate) == 0 && len(d.ToRemove) == 0
}

// Compute partitions the keys of primary against target. A missing target
// file is represented by a nil or empty map: everything lands in
// ToTranslate.
func Compute(primary, target *units.Map) *Diff {
	d := &Diff{}

	for _, k := range primary.Keys() {
		if target != nil && target.Has(k) {
			d.Unchanged = append(d.Unchanged, k)
		} else {
			d.ToTranslate = append(d.ToTranslate, k)
		}
	}
	if target != nil {
		for _, k := range target.Keys() {
			if !primary.Has(k) {
				d.ToRemove = append(d.ToRemove, k)
			}
		}
	}
	return d
}

// Apply builds the synchronized target map: primary key order, existing
// target values for unchanged keys, translated values for missing keys.
// Keys absent from translations (a failed batch) are left out entirely so
// the file never gains untranslated placeholders; stale target keys are
// dropped. The inputs are not modified.
func Apply(primary, target *units.Map, translations map[string]string) *units.Map {
	out := units.New()
	for _, k := range primary.Keys() {
		if target != nil {
			if v, ok := target.Get(k); ok {
				out.Set(k, v)
				continue
			}
		}
		if v, ok := translations[k]; ok {
			out.Set(k, v)
		}
	}
	return out
}
