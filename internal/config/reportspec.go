package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReportSpec is the externalized report-semantics configuration: status
// display order, the aggregation bucket, the role-classification lexicon
// and the special-project root. Defaults mirror production; a YAML file
// overrides them wholesale per section.
type ReportSpec struct {
	StatusOrder    []string           `yaml:"status_order"`
	Aggregate      AggregateSpec      `yaml:"aggregate"`
	Roles          RoleSpec           `yaml:"roles"`
	SpecialProject SpecialProjectSpec `yaml:"special_project"`
}

// AggregateSpec folds the From statuses into the single displayed Name
// bucket. Name must also appear in StatusOrder so the bucket has a column.
type AggregateSpec struct {
	Name string   `yaml:"name"`
	From []string `yaml:"from"`
}

type RoleSpec struct {
	Default    string     `yaml:"default"`
	Unassigned string     `yaml:"unassigned"`
	Rules      []RoleRule `yaml:"rules"`
}

type RoleRule struct {
	Role     string   `yaml:"role"`
	Keywords []string `yaml:"keywords"`
}

// SpecialProjectSpec designates the root of the special project family.
// When ID is zero the root is resolved by name against the project list
// at startup.
type SpecialProjectSpec struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

func DefaultReportSpec() ReportSpec {
	return ReportSpec{
		StatusOrder: []string{"執行中", "審核中", "修改中", "已完成(結案)", "進行中", "擬定中", "暫停"},
		Aggregate: AggregateSpec{
			Name: "進行中",
			From: []string{"執行中", "審核中", "修改中", "已完成(結案)"},
		},
		Roles: RoleSpec{
			Default:    "一般使用者",
			Unassigned: "未分派",
			Rules: []RoleRule{
				{Role: "管理階層", Keywords: []string{"manager", "經理", "主管"}},
				{Role: "工程師", Keywords: []string{"engineer", "工程師"}},
				{Role: "系統管理員", Keywords: []string{"admin", "管理員"}},
			},
		},
		SpecialProject: SpecialProjectSpec{Name: "專項用"},
	}
}

// LoadReportSpec reads the YAML override file when present; a missing
// file means defaults, a malformed one is logged and ignored.
func LoadReportSpec(path string) ReportSpec {
	spec := DefaultReportSpec()
	if path == "" { return spec }
	data, err := os.ReadFile(path)
	if err != nil { return spec }
	var file ReportSpec
	if err := yaml.Unmarshal(data, &file); err != nil {
		log.Printf("warning: cannot parse report spec %s: %v", path, err)
		return spec
	}
	if len(file.StatusOrder) > 0 { spec.StatusOrder = file.StatusOrder }
	if file.Aggregate.Name != "" { spec.Aggregate = file.Aggregate }
	if file.Roles.Default != "" || len(file.Roles.Rules) > 0 {
		if file.Roles.Default == "" { file.Roles.Default = spec.Roles.Default }
		if file.Roles.Unassigned == "" { file.Roles.Unassigned = spec.Roles.Unassigned }
		spec.Roles = file.Roles
	}
	if file.SpecialProject.ID != 0 || file.SpecialProject.Name != "" {
		spec.SpecialProject = file.SpecialProject
	}
	return spec
}

// DisplayStatuses is StatusOrder with the aggregate's constituents folded
// away: once a status feeds the bucket it never gets its own column.
func (r ReportSpec) DisplayStatuses() []string {
	folded := map[string]bool{}
	for _, s := range r.Aggregate.From {
		if s != r.Aggregate.Name { folded[s] = true }
	}
	out := make([]string, 0, len(r.StatusOrder))
	for _, s := range r.StatusOrder {
		if folded[s] { continue }
		out = append(out, s)
	}
	return out
}

// IsAggregated reports whether a raw status feeds the aggregate bucket.
func (r ReportSpec) IsAggregated(status string) bool {
	for _, s := range r.Aggregate.From {
		if s == status { return true }
	}
	return false
}

// AggregationNote is the report footnote naming the bucket's feeding
// statuses. Derived from the same mapping the pipeline folds with, so the
// text cannot drift from the behavior.
func (r ReportSpec) AggregationNote() string {
	return fmt.Sprintf("註：%s為狀態「%s」的加總", r.Aggregate.Name, strings.Join(r.Aggregate.From, "、"))
}
