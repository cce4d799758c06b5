// Package validator checks structured changelog entries against a
// configurable policy of mandatory, forbidden, and allowed fields.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alan/changelog-guard/cmd"
)

// standardFields are the fields of the structured entry schema
var standardFields = map[string]bool{
	"title":           true,
	"type":            true,
	"authors":         true,
	"modules":         true,
	"issues":          true,
	"merge_requests":  true,
	"links":           true,
	"important_notes": true,
}

// Policy is the rule set a changelog entry is validated against. An empty
// Optional list means any standard field is allowed; a non-empty list
// restricts entries to Mandatory plus Optional fields.
type Policy struct {
	Mandatory    []string
	Forbidden    []string
	Optional     []string
	AllowedTypes []string
}

// Result reports the outcome of one validation call. Valid is true exactly
// when Errors is empty.
type Result struct {
	Valid  bool
	Errors []string
}

// Validator validates entry text against a fixed policy
type Validator struct {
	policy       Policy
	allowedTypes map[string]bool
	restricted   map[string]bool
}

// New builds a Validator from the given policy
func New(policy Policy) *Validator {
	v := &Validator{
		policy:       policy,
		allowedTypes: make(map[string]bool, len(policy.AllowedTypes)),
	}
	for _, t := range policy.AllowedTypes {
		v.allowedTypes[t] = true
	}
	if len(policy.Optional) > 0 {
		v.restricted = make(map[string]bool, len(policy.Optional)+len(policy.Mandatory))
		for _, f := range policy.Optional {
			v.restricted[f] = true
		}
		for _, f := range policy.Mandatory {
			v.restricted[f] = true
		}
	}
	return v
}

// Validate parses entryText and runs every policy check, accumulating all
// violations rather than stopping at the first. Only an unparseable entry
// short-circuits, since no field check is possible without a mapping.
func (v *Validator) Validate(entryText string) Result {
	fields, _, err := ParseEntry(entryText)
	if err != nil {
		return Result{Valid: false, Errors: []string{err.Error()}}
	}

	var errs []string
	errs = append(errs, v.checkMandatory(fields)...)
	errs = append(errs, v.checkForbidden(fields)...)
	errs = append(errs, v.checkRestricted(fields)...)
	errs = append(errs, v.checkType(fields)...)
	errs = append(errs, v.checkAuthors(fields)...)
	errs = append(errs, checkTitle(fields)...)

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// ParseEntry parses entry text into its raw field mapping and a typed Entry.
// Field names outside the schema are recorded in Entry.Unknown.
func ParseEntry(entryText string) (map[string]any, *cmd.Entry, error) {
	var raw any
	if err := yaml.Unmarshal([]byte(entryText), &raw); err != nil {
		return nil, nil, fmt.Errorf("invalid YAML: %v", err)
	}
	if raw == nil {
		return nil, nil, fmt.Errorf("entry is empty")
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("entry must be a mapping")
	}

	var entry cmd.Entry
	// The typed decode is best-effort: field checks run on the raw mapping,
	// so a type mismatch here must not mask the real violations.
	_ = yaml.Unmarshal([]byte(entryText), &entry)
	for name := range fields {
		if !standardFields[name] {
			entry.Unknown = append(entry.Unknown, name)
		}
	}
	sort.Strings(entry.Unknown)

	return fields, &entry, nil
}

func (v *Validator) checkMandatory(fields map[string]any) []string {
	var errs []string
	for _, name := range v.policy.Mandatory {
		value, present := fields[name]
		if !present || isBlank(value) {
			errs = append(errs, fmt.Sprintf("missing mandatory field: %s", name))
		}
	}
	return errs
}

func (v *Validator) checkForbidden(fields map[string]any) []string {
	var errs []string
	for _, name := range v.policy.Forbidden {
		if _, present := fields[name]; present {
			errs = append(errs, fmt.Sprintf("forbidden field present: %s", name))
		}
	}
	return errs
}

func (v *Validator) checkRestricted(fields map[string]any) []string {
	if v.restricted == nil {
		return nil
	}
	var names []string
	for name := range fields {
		if !v.restricted[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	errs := make([]string, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Sprintf("unexpected field: %s", name))
	}
	return errs
}

func (v *Validator) checkType(fields map[string]any) []string {
	value, present := fields["type"]
	if !present || value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return []string{"type must be a string"}
	}
	if !v.allowedTypes[s] {
		allowed := strings.Join(v.policy.AllowedTypes, ", ")
		return []string{fmt.Sprintf("invalid type %q, allowed types: %s", s, allowed)}
	}
	return nil
}

func (v *Validator) checkAuthors(fields map[string]any) []string {
	value, present := fields["authors"]
	if !present || value == nil {
		return nil
	}
	authors, ok := value.([]any)
	if !ok {
		return []string{"authors must be a list"}
	}

	var errs []string
	for i, a := range authors {
		author, ok := a.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("authors[%d] must be a mapping", i))
			continue
		}
		name, present := author["name"]
		if !present || isBlank(name) {
			errs = append(errs, fmt.Sprintf("authors[%d] is missing a name", i))
		}
	}
	return errs
}

func checkTitle(fields map[string]any) []string {
	value, present := fields["title"]
	if !present || value == nil {
		return nil
	}
	if _, ok := value.(string); !ok {
		return []string{"title must be a string"}
	}
	return nil
}

// isBlank reports whether a present field value counts as empty for the
// mandatory-field check: nil, whitespace-only string, or empty collection.
func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
