package filter

import (
	"fmt"
	"regexp"

	"github.com/glefebvre/iptvplayer/internal/config"
)

// Rule attributes
const (
	AttrGroupTitle = "group_title"
	AttrName       = "name"
)

// Rule is a compiled include/exclude pattern set for one attribute
type Rule struct {
	Name            string
	Attribute       string
	IncludePatterns []*regexp.Regexp
	ExcludePatterns []*regexp.Regexp
}

// Rules narrows a catalog by regex on group title and name. A nil *Rules
// allows everything.
type Rules struct {
	rules []Rule
}

// NewRules creates an empty rule set
func NewRules() *Rules {
	return &Rules{
		rules: make([]Rule, 0),
	}
}

// LoadRules compiles the group-title and name rules from configuration
func LoadRules(cfg config.FilterConfig) (*Rules, error) {
	r := NewRules()

	if err := r.Add(AttrGroupTitle, cfg.GroupTitle.IncludePatterns, cfg.GroupTitle.ExcludePatterns); err != nil {
		return nil, fmt.Errorf("failed to load group-title rules: %w", err)
	}
	if err := r.Add(AttrName, cfg.Name.IncludePatterns, cfg.Name.ExcludePatterns); err != nil {
		return nil, fmt.Errorf("failed to load name rules: %w", err)
	}

	return r, nil
}

// Add compiles and appends a rule. A rule with no patterns is ignored.
func (r *Rules) Add(attribute string, includePatterns, excludePatterns []string) error {
	rule := Rule{
		Name:            fmt.Sprintf("%s_rule", attribute),
		Attribute:       attribute,
		IncludePatterns: make([]*regexp.Regexp, 0, len(includePatterns)),
		ExcludePatterns: make([]*regexp.Regexp, 0, len(excludePatterns)),
	}

	for _, pattern := range includePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("failed to compile include pattern '%s': %w", pattern, err)
		}
		rule.IncludePatterns = append(rule.IncludePatterns, compiled)
	}

	for _, pattern := range excludePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("failed to compile exclude pattern '%s': %w", pattern, err)
		}
		rule.ExcludePatterns = append(rule.ExcludePatterns, compiled)
	}

	if len(rule.IncludePatterns) > 0 || len(rule.ExcludePatterns) > 0 {
		r.rules = append(r.rules, rule)
	}
	return nil
}

// Matches checks a value against every rule for attribute. Excludes win;
// when include patterns exist at least one must match.
func (r *Rules) Matches(attribute, value string) bool {
	if r == nil {
		return true
	}

	for _, rule := range r.rules {
		if rule.Attribute != attribute {
			continue
		}

		for _, exclude := range rule.ExcludePatterns {
			if exclude.MatchString(value) {
				return false
			}
		}

		if len(rule.IncludePatterns) > 0 {
			matched := false
			for _, include := range rule.IncludePatterns {
				if include.MatchString(value) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}

	return true
}

// Allow checks both attributes of an entry
func (r *Rules) Allow(groupTitle, name string) bool {
	return r.Matches(AttrGroupTitle, groupTitle) && r.Matches(AttrName, name)
}

// Count returns the number of active rules
func (r *Rules) Count() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// Keep returns the items the rules allow, using the category as group title
func Keep[T Item](items []T, r *Rules) []T {
	if r.Count() == 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if r.Allow(item.ItemCategory(), item.ItemName()) {
			out = append(out, item)
		}
	}
	return out
}
