package patterns

import (
	"fmt"
	"os"
	"regexp"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
	"gopkg.in/yaml.v3"
)

// boosterFile is the YAML document shape for custom booster rules.
type boosterFile struct {
	Boosters []struct {
		Name     string  `yaml:"name"`
		Pattern  string  `yaml:"pattern"`
		Category string  `yaml:"category"`
		Boost    float64 `yaml:"boost"`
	} `yaml:"boosters"`
}

// LoadBoosterFile registers additional booster rules from a YAML file on
// top of the compiled-in set. Rules are validated before any is added so
// a bad file leaves the registry untouched.
func (r *Registry) LoadBoosterFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read booster file: %w", err)
	}

	var file boosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse booster file: %w", err)
	}

	type compiled struct {
		name  string
		re    *regexp.Regexp
		cat   taxonomy.Category
		boost float64
	}
	rules := make([]compiled, 0, len(file.Boosters))
	for i, b := range file.Boosters {
		if b.Name == "" {
			return fmt.Errorf("booster entry %d missing name", i)
		}
		re, err := regexp.Compile(b.Pattern)
		if err != nil {
			return fmt.Errorf("booster %s: invalid pattern: %w", b.Name, err)
		}
		if b.Boost <= 0 || b.Boost > 1.0 {
			return fmt.Errorf("booster %s: boost %.2f outside (0,1]", b.Name, b.Boost)
		}
		rules = append(rules, compiled{name: b.Name, re: re, cat: taxonomy.Category(b.Category), boost: b.Boost})
	}

	for _, c := range rules {
		b := &BoosterRule{Name: c.name, Regex: c.re, Category: c.cat, Boost: c.boost}
		r.boosters = append(r.boosters, b)
		r.byCat[c.cat] = append(r.byCat[c.cat], b)
	}
	return nil
}
