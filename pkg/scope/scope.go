// Package scope holds per-role allow-lists restricting permissible domains
// and actions independent of risk signals. Static configuration: loaded at
// startup, read-only at request time.
package scope

import (
	"fmt"
	"os"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
	"gopkg.in/yaml.v3"
)

// RoleScope is one role's allow-lists. An empty list means open scope:
// no restriction beyond the risk and confidence gates.
type RoleScope struct {
	Role           string   `yaml:"role"`
	AllowedDomains []string `yaml:"allowed_domains"`
	AllowedActions []string `yaml:"allowed_actions"`
	Description    string   `yaml:"description,omitempty"`
}

// AllowsDomain reports whether the role may operate in the domain.
func (r *RoleScope) AllowsDomain(d taxonomy.Domain) bool {
	if len(r.AllowedDomains) == 0 {
		return true
	}
	for _, allowed := range r.AllowedDomains {
		if allowed == string(d) {
			return true
		}
	}
	return false
}

// AllowsAction reports whether the role may perform the action.
func (r *RoleScope) AllowsAction(a taxonomy.Action) bool {
	if len(r.AllowedActions) == 0 {
		return true
	}
	for _, allowed := range r.AllowedActions {
		if allowed == string(a) {
			return true
		}
	}
	return false
}

// Table maps role name to scope. Unknown roles fall back to "general".
type Table struct {
	scopes map[string]*RoleScope
}

// Lookup returns the scope for a role, falling back to general and
// finally to an open scope so an unknown role is gated by risk and
// confidence only.
func (t *Table) Lookup(role string) *RoleScope {
	if s, ok := t.scopes[role]; ok {
		return s
	}
	if s, ok := t.scopes["general"]; ok {
		return s
	}
	return &RoleScope{Role: role}
}

// Roles returns the number of configured roles.
func (t *Table) Roles() int { return len(t.scopes) }

// DefaultTable returns the compiled-in role scopes.
func DefaultTable() *Table {
	scopes := []*RoleScope{
		{
			Role:           "recruiter",
			AllowedDomains: []string{string(taxonomy.DomainRecruitment), string(taxonomy.DomainGeneral), string(taxonomy.DomainEducation)},
			AllowedActions: []string{string(taxonomy.ActionQuery), string(taxonomy.ActionSummarize), string(taxonomy.ActionGreet)},
			Description:    "Hiring workflows: candidate review, scheduling, outreach drafts",
		},
		{
			Role:           "financial_advisor",
			AllowedDomains: []string{string(taxonomy.DomainFinance), string(taxonomy.DomainLegal), string(taxonomy.DomainGeneral)},
			AllowedActions: []string{string(taxonomy.ActionQuery), string(taxonomy.ActionSummarize), string(taxonomy.ActionGenerate), string(taxonomy.ActionGreet)},
			Description:    "Client advisory: research, summaries, report drafting",
		},
		{
			Role:           "developer",
			AllowedDomains: []string{string(taxonomy.DomainTechnical), string(taxonomy.DomainEducation), string(taxonomy.DomainGeneral)},
			AllowedActions: []string{string(taxonomy.ActionQuery), string(taxonomy.ActionSummarize), string(taxonomy.ActionGenerate), string(taxonomy.ActionModify), string(taxonomy.ActionGreet)},
			Description:    "Engineering assistant: code, docs, debugging",
		},
		{
			Role:        "general",
			Description: "Open scope: gated by risk and confidence only",
		},
	}

	table := &Table{scopes: make(map[string]*RoleScope, len(scopes))}
	for _, s := range scopes {
		table.scopes[s.Role] = s
	}
	return table
}

// scopeFile is the YAML document shape for role scope overrides.
type scopeFile struct {
	Roles []*RoleScope `yaml:"roles"`
}

// LoadTable reads role scopes from a YAML file, replacing the defaults
// for any role it names and keeping the defaults for the rest.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scope file: %w", err)
	}

	var file scopeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scope file: %w", err)
	}

	table := DefaultTable()
	for _, s := range file.Roles {
		if s.Role == "" {
			return nil, fmt.Errorf("scope entry missing role name")
		}
		table.scopes[s.Role] = s
	}
	return table, nil
}
