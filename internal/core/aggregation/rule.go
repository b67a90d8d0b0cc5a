package aggregation

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RollupRule defines one rollup projection.
// Rules are loaded at startup from YAML files and fingerprinted so an edited
// rule can be told apart from the one that built the stored documents.
type RollupRule struct {
	Name           string
	SourceEvents   []string      // event types folded into the rollup
	AggregateTypes []string      // optional stream aggregate type filter
	Operator       string        // count, sum, min, max
	Field          string        // payload field (dotted path); empty for count
	GroupBy        string        // "", stream, tenant, aggregate_type
	WindowSize     time.Duration // zero disables windowing
	Slices         int           // >1 runs the rollup as that many partitioned shards
	Fingerprint    string        // SHA-256 of the raw YAML file
}

// rawRule is the on-disk YAML shape.
// source_event (single) is accepted alongside source_events.
type rawRule struct {
	Name           string   `yaml:"name"`
	SourceEvent    string   `yaml:"source_event"`
	SourceEvents   []string `yaml:"source_events"`
	AggregateTypes []string `yaml:"aggregate_types"`
	Operator       string   `yaml:"operator"`
	Field          string   `yaml:"field"`
	GroupBy        string   `yaml:"group_by"`
	WindowSize     string   `yaml:"window_size"`
	Slices         int      `yaml:"slices"`
}

// RuleRepository loads rollup rules.
type RuleRepository interface {
	// Get returns the rule with the given name, or an error if not found.
	Get(ctx context.Context, name string) (*RollupRule, error)

	// List returns rules that fold sourceEvent, or all rules when it is empty.
	List(ctx context.Context, sourceEvent string) ([]RollupRule, error)

	// GetRules returns all rules ordered by name.
	GetRules() []RollupRule
}

// FileSystemRuleRepository loads rollup rules from *.yaml files in a directory.
// Each file holds exactly one rule. Rules are loaded once at startup; changing a
// rule requires a restart and usually a rebuild of its projection.
type FileSystemRuleRepository struct {
	dir   string
	rules map[string]RollupRule
}

// NewFileSystemRuleRepository eagerly loads all rules from dir.
// A missing directory yields zero rules.
func NewFileSystemRuleRepository(dir string) (*FileSystemRuleRepository, error) {
	repo := &FileSystemRuleRepository{
		dir:   dir,
		rules: make(map[string]RollupRule),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRuleRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rollup rule dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("rollup rule path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading rollup rule dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading rule file %s: %w", path, err)
		}

		rule, err := ParseRule(data)
		if err != nil {
			return fmt.Errorf("rule file %s: %w", path, err)
		}
		if rule == nil {
			continue // empty / comment-only file
		}

		if _, exists := r.rules[rule.Name]; exists {
			return fmt.Errorf("rule %q: duplicate rule name (check multiple YAML files)", rule.Name)
		}
		r.rules[rule.Name] = *rule
	}
	return nil
}

// ParseRule validates one YAML rule document. It returns nil, nil for a document without a name.
func ParseRule(data []byte) (*RollupRule, error) {
	var raw rawRule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing rule: %w", err)
	}
	if raw.Name == "" {
		return nil, nil
	}
	if strings.ContainsAny(raw.Name, ":@") {
		return nil, fmt.Errorf("rule %q: name must not contain ':' or '@'", raw.Name)
	}

	sources := raw.SourceEvents
	if raw.SourceEvent != "" {
		sources = append([]string{raw.SourceEvent}, sources...)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("rule %q: source_events must not be empty", raw.Name)
	}

	if !ValidOperator(raw.Operator) {
		return nil, fmt.Errorf("rule %q: unsupported operator %q", raw.Name, raw.Operator)
	}
	if Operators[raw.Operator].NeedsField() && raw.Field == "" {
		return nil, fmt.Errorf("rule %q: operator %q requires field", raw.Name, raw.Operator)
	}

	switch raw.GroupBy {
	case GroupByNone, GroupByStream, GroupByTenant, GroupByAggregateType:
	default:
		return nil, fmt.Errorf("rule %q: unsupported group_by %q", raw.Name, raw.GroupBy)
	}

	window, err := ParseWindowSize(raw.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", raw.Name, err)
	}

	if raw.Slices < 0 {
		return nil, fmt.Errorf("rule %q: slices must be >= 0", raw.Name)
	}
	if raw.Slices > 1 && raw.GroupBy != GroupByStream {
		// Slices partition by stream; any other grouping would split one group across shards.
		return nil, fmt.Errorf("rule %q: slices require group_by stream", raw.Name)
	}

	return &RollupRule{
		Name:           raw.Name,
		SourceEvents:   sources,
		AggregateTypes: raw.AggregateTypes,
		Operator:       raw.Operator,
		Field:          raw.Field,
		GroupBy:        raw.GroupBy,
		WindowSize:     window.Size,
		Slices:         raw.Slices,
		Fingerprint:    fmt.Sprintf("%x", sha256.Sum256(data)),
	}, nil
}

// Get returns the rule with the given name, or an error if not found.
func (r *FileSystemRuleRepository) Get(_ context.Context, name string) (*RollupRule, error) {
	rule, ok := r.rules[name]
	if !ok {
		return nil, fmt.Errorf("rollup rule %q not found", name)
	}
	return &rule, nil
}

// List returns rules that fold sourceEvent, or all rules when it is empty.
func (r *FileSystemRuleRepository) List(_ context.Context, sourceEvent string) ([]RollupRule, error) {
	var out []RollupRule
	for _, rule := range r.GetRules() {
		if sourceEvent != "" && !containsString(rule.SourceEvents, sourceEvent) {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

// GetRules returns all rules ordered by name.
func (r *FileSystemRuleRepository) GetRules() []RollupRule {
	rules := make([]RollupRule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
