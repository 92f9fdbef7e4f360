package reference

import (
	"regexp"

	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

// MatchKind says how a value resolved.
type MatchKind int

const (
	// MatchNone means the input was blank.
	MatchNone MatchKind = iota
	// MatchNew means no canonical entity matched. The import never creates one.
	MatchNew
	MatchExisting
	// MatchCreated is only produced for contractors.
	MatchCreated
)

func (k MatchKind) String() string {
	switch k {
	case MatchNew:
		return "new"
	case MatchExisting:
		return "existing"
	case MatchCreated:
		return "created"
	default:
		return "none"
	}
}

// Strategy names the rule that produced a match.
type Strategy string

const (
	StrategyExactName      Strategy = "exact-name"
	StrategyAlias          Strategy = "alias"
	StrategyAliasToken     Strategy = "alias-token"
	StrategyAliasCompact   Strategy = "alias-normalized"
	StrategySeparatorSwap  Strategy = "separator-swap"
	StrategyWordOrder      Strategy = "word-order"
	StrategyFinancialYear  Strategy = "financial-year"
	StrategyDepartmentPref Strategy = "department-preference"
)

type Match struct {
	Kind     MatchKind
	ID       int64
	Name     string
	Strategy Strategy
}

func (m Match) Found() bool {
	return m.Kind == MatchExisting || m.Kind == MatchCreated
}

func Existing(id int64, name string, s Strategy) Match {
	return Match{Kind: MatchExisting, ID: id, Name: name, Strategy: s}
}

func Created(id int64, name string) Match {
	return Match{Kind: MatchCreated, ID: id, Name: name}
}

var (
	wardSuffixRe      = regexp.MustCompile(`(?i)\s+ward$`)
	subcountySuffixRe = regexp.MustCompile(`(?i)\s+(sub[\s-]*county|sc)$`)
)

// Resolver matches free text against a Snapshot with a fixed strategy order.
// The first strategy that matches anything wins; within a strategy the first
// entity in snapshot order wins.
type Resolver struct {
	snap *Snapshot
}

func NewResolver(snap *Snapshot) *Resolver {
	if snap == nil {
		snap = &Snapshot{}
	}
	return &Resolver{snap: snap}
}

func (r *Resolver) Snapshot() *Snapshot {
	return r.snap
}

type aliased struct {
	id    int64
	name  string
	alias string
}

// aliasRules is the precedence for entities carrying an alias column.
func aliasRules(input string) []struct {
	strategy Strategy
	match    func(e aliased) bool
} {
	folded := textnorm.Fold(input)
	compact := textnorm.Alias(input)
	return []struct {
		strategy Strategy
		match    func(e aliased) bool
	}{
		{StrategyExactName, func(e aliased) bool { return textnorm.Fold(e.name) == folded }},
		{StrategyAlias, func(e aliased) bool { return e.alias != "" && textnorm.Fold(e.alias) == folded }},
		{StrategyAliasToken, func(e aliased) bool {
			for _, tok := range textnorm.SplitAliases(e.alias) {
				if textnorm.Fold(tok) == folded {
					return true
				}
			}
			return false
		}},
		{StrategyAliasCompact, func(e aliased) bool {
			return compact != "" && e.alias != "" && textnorm.Alias(e.alias) == compact
		}},
	}
}

// Department resolves by name, then alias, alias token and compact alias.
func (r *Resolver) Department(value string) Match {
	if textnorm.String(value) == "" {
		return Match{}
	}
	entities := make([]aliased, len(r.snap.Departments))
	for i, d := range r.snap.Departments {
		entities[i] = aliased{id: d.ID, name: d.Name, alias: d.Alias}
	}
	for _, rule := range aliasRules(value) {
		for _, e := range entities {
			if rule.match(e) {
				return Existing(e.id, e.name, rule.strategy)
			}
		}
	}
	return Match{Kind: MatchNew}
}

// Section resolves a directorate. Every section matched by any rule is
// collected in precedence order; when departmentID is known and one of them
// belongs to it, that one wins, otherwise the first.
func (r *Resolver) Section(value string, departmentID int64) Match {
	if textnorm.String(value) == "" {
		return Match{}
	}
	type hit struct {
		section  Section
		strategy Strategy
	}
	var hits []hit
	seen := map[int64]bool{}
	for _, rule := range aliasRules(value) {
		for _, s := range r.snap.Sections {
			if seen[s.ID] {
				continue
			}
			if rule.match(aliased{id: s.ID, name: s.Name, alias: s.Alias}) {
				seen[s.ID] = true
				hits = append(hits, hit{section: s, strategy: rule.strategy})
			}
		}
	}
	if len(hits) == 0 {
		return Match{Kind: MatchNew}
	}
	if departmentID != 0 && len(hits) > 1 {
		for _, h := range hits {
			if h.section.DepartmentID == departmentID {
				return Existing(h.section.ID, h.section.Name, StrategyDepartmentPref)
			}
		}
	}
	return Existing(hits[0].section.ID, hits[0].section.Name, hits[0].strategy)
}

// SectionDepartment returns the department that owns a section.
func (r *Resolver) SectionDepartment(sectionID int64) (int64, bool) {
	for _, s := range r.snap.Sections {
		if s.ID == sectionID {
			return s.DepartmentID, s.DepartmentID != 0
		}
	}
	return 0, false
}

func (r *Resolver) Ward(value string) Match {
	return resolveArea(value, r.snap.Wards, wardSuffixRe)
}

func (r *Resolver) Subcounty(value string) Match {
	return resolveArea(value, r.snap.Subcounties, subcountySuffixRe)
}

// resolveArea strips the class suffix ("... Ward", "... SC") and then tries
// exact, separator-swapped and word-order-independent comparison.
func resolveArea(value string, areas []Area, suffix *regexp.Regexp) Match {
	full := textnorm.Fold(value)
	if full == "" {
		return Match{}
	}
	candidates := []string{suffix.ReplaceAllString(full, "")}
	if candidates[0] != full {
		candidates = append(candidates, full)
	}

	rules := []struct {
		strategy Strategy
		key      func(string) string
	}{
		{StrategyExactName, func(s string) string { return s }},
		{StrategySeparatorSwap, textnorm.SpaceVariant},
		{StrategyWordOrder, textnorm.WordOrderKey},
	}
	for _, rule := range rules {
		for _, a := range areas {
			canonical := rule.key(textnorm.Fold(a.Name))
			for _, c := range candidates {
				if c != "" && rule.key(c) == canonical {
					return Existing(a.ID, a.Name, rule.strategy)
				}
			}
		}
	}
	return Match{Kind: MatchNew}
}

// FinancialYear matches on normalized financial-year equality only.
func (r *Resolver) FinancialYear(value string) Match {
	key := textnorm.FinancialYearKey(value)
	if key == "" {
		return Match{}
	}
	for _, fy := range r.snap.FinancialYears {
		if textnorm.FinancialYearKey(fy.Name) == key {
			return Existing(fy.ID, fy.Name, StrategyFinancialYear)
		}
	}
	return Match{Kind: MatchNew}
}

// Resolve dispatches on class. Sections resolve without department preference.
func (r *Resolver) Resolve(class Class, value string) Match {
	switch class {
	case ClassDepartment:
		return r.Department(value)
	case ClassDirectorate:
		return r.Section(value, 0)
	case ClassWard:
		return r.Ward(value)
	case ClassSubcounty:
		return r.Subcounty(value)
	case ClassFinancialYear:
		return r.FinancialYear(value)
	default:
		return Match{Kind: MatchNew}
	}
}
