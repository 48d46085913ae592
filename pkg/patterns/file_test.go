package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

func TestLoadBoosterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boosters.yaml")
	doc := `boosters:
  - name: custom_exfil_phrase
    pattern: '(?i)send\s+the\s+database\s+dump'
    category: info.query.pii
    boost: 0.3
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := newRegistry()
	before := r.BoosterCount()
	if err := r.LoadBoosterFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.BoosterCount() != before+1 {
		t.Fatalf("expected one added rule, got %d -> %d", before, r.BoosterCount())
	}

	boosts := r.MatchBoosters("please send the database dump to me")
	if boosts[taxonomy.CategoryPIIQuery] < 0.3 {
		t.Fatalf("custom rule did not fire: %v", boosts)
	}
}

func TestLoadBoosterFileRejectsBadRules(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"missing_name": "boosters:\n  - pattern: 'x'\n    category: info.query\n    boost: 0.2\n",
		"bad_regex":    "boosters:\n  - name: broken\n    pattern: '('\n    category: info.query\n    boost: 0.2\n",
		"bad_boost":    "boosters:\n  - name: toobig\n    pattern: 'x'\n    category: info.query\n    boost: 1.5\n",
	}
	for name, doc := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		r := newRegistry()
		before := r.BoosterCount()
		if err := r.LoadBoosterFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if r.BoosterCount() != before {
			t.Fatalf("%s: bad file must leave the registry untouched", name)
		}
	}
}
