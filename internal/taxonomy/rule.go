// Package taxonomy compiles hierarchical YAML rule sources into an
// immutable in-memory repository used by the classification engine.
package taxonomy

// Rule is a compiled matching rule. Token groups are normalized at
// build time so classification compares plain strings.
//
// Must groups combine with AND across groups and OR within a group;
// any exclude-group token present in a description vetoes the rule.
type Rule struct {
	Nickname    string     `json:"apelido"`
	Unit        string     `json:"unit"`
	Must        [][]string `json:"contem"`
	Exclude     [][]string `json:"ignorar,omitempty"`
	Domain      string     `json:"dominio"`
	SourceFile  string     `json:"source_file"`
	SourceOrder int        `json:"source_order"`
}

// Report summarizes a repository build.
type Report struct {
	FilesRead  int            `json:"files_read"`
	RuleCount  int            `json:"rule_count"`
	UnitCount  int            `json:"unit_count"`
	Warnings   []string       `json:"warnings,omitempty"`
	Duplicates []string       `json:"duplicates,omitempty"`
	PerUnit    map[string]int `json:"per_unit,omitempty"`
}

// Repository is the compiled rule set plus the unit synonym map.
// It is immutable after Build; rebuilds produce a new value.
type Repository struct {
	Rules  []Rule  `json:"rules"`
	Units  UnitMap `json:"units"`
	Report Report  `json:"report"`
}
