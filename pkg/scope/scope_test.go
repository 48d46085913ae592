package scope

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	if table.Roles() != 4 {
		t.Fatalf("expected 4 default roles, got %d", table.Roles())
	}

	recruiter := table.Lookup("recruiter")
	if !recruiter.AllowsDomain(taxonomy.DomainRecruitment) {
		t.Fatalf("recruiter must allow recruitment domain")
	}
	if recruiter.AllowsDomain(taxonomy.DomainFinance) {
		t.Fatalf("recruiter must not allow finance domain")
	}
	if recruiter.AllowsAction(taxonomy.ActionControl) {
		t.Fatalf("recruiter must not allow control action")
	}
}

func TestOpenScope(t *testing.T) {
	general := DefaultTable().Lookup("general")
	for _, d := range taxonomy.AllDomains() {
		if !general.AllowsDomain(d) {
			t.Fatalf("open scope must allow domain %s", d)
		}
	}
	for _, a := range taxonomy.AllActions() {
		if !general.AllowsAction(a) {
			t.Fatalf("open scope must allow action %s", a)
		}
	}
}

func TestUnknownRoleFallsBackToGeneral(t *testing.T) {
	s := DefaultTable().Lookup("intern")
	if !s.AllowsDomain(taxonomy.DomainFinance) {
		t.Fatalf("unknown role should inherit the open general scope")
	}
}

func TestLoadTableOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scopes.yaml")
	doc := `roles:
  - role: recruiter
    allowed_domains: [recruitment]
    allowed_actions: [query]
  - role: auditor
    allowed_domains: [finance, legal]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	recruiter := table.Lookup("recruiter")
	if recruiter.AllowsDomain(taxonomy.DomainEducation) {
		t.Fatalf("override should narrow recruiter domains")
	}

	auditor := table.Lookup("auditor")
	if !auditor.AllowsDomain(taxonomy.DomainLegal) {
		t.Fatalf("new role from file should be honored")
	}
	if !auditor.AllowsAction(taxonomy.ActionModify) {
		t.Fatalf("empty action list means open actions")
	}

	// Untouched defaults survive
	if table.Lookup("developer").AllowsDomain(taxonomy.DomainFinance) {
		t.Fatalf("developer scope should remain restricted")
	}
}

func TestLoadTableRejectsMissingRoleName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("roles:\n  - allowed_domains: [finance]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatalf("expected error for entry without role name")
	}
}
