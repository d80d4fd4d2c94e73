package ui

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/docker/go-units"

	"github.com/arthur-debert/relocator/pkg/types"
)

// Status is the overall outcome shown next to a document title
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusWarning Status = "warning"
	StatusInfo    Status = "info"
)

// Document is the format-neutral shape of a result
type Document struct {
	Kind   string
	Title  string
	Status Status
	Fields []Field
	Tables []Table
	Notes  []string
}

// Field is one labelled value
type Field struct {
	Label string
	Value string
}

// Table is a titled grid with a header row
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// AuditReport joins an operation with the registry rewrite it performed
type AuditReport struct {
	Operation *types.OperationRecord      `json:"operation" yaml:"operation"`
	Registry  *types.RegistryUpdateReport `json:"registry,omitempty" yaml:"registry,omitempty"`
}

// TemplateCheck is the outcome of validating a naming pattern
type TemplateCheck struct {
	Pattern string                 `json:"pattern" yaml:"pattern"`
	Result  types.ValidationResult `json:"result" yaml:"result"`
	Example string                 `json:"example,omitempty" yaml:"example,omitempty"`
}

// Message is free text
type Message struct {
	Text string `json:"message" yaml:"message"`
}

const timeLayout = "2006-01-02 15:04:05"

// BuildDocument converts a result into a Document. Unknown values become
// a single field holding their %+v form.
func BuildDocument(result interface{}) Document {
	switch v := result.(type) {
	case *types.MigrationPlan:
		return planDocument(v)
	case *types.MigrationResult:
		return migrationDocument(v)
	case *types.RollbackResult:
		return rollbackDocument(v)
	case []*types.OperationRecord:
		return historyDocument(v)
	case *types.OperationRecord:
		return auditDocument(&AuditReport{Operation: v})
	case *AuditReport:
		return auditDocument(v)
	case types.InstallState:
		return stateDocument(v)
	case []types.NamingTemplate:
		return templatesDocument(v)
	case *TemplateCheck:
		return templateCheckDocument(v)
	case Message:
		return Document{Kind: "message", Status: StatusInfo, Notes: []string{v.Text}}
	case string:
		return Document{Kind: "message", Status: StatusInfo, Notes: []string{v}}
	default:
		return Document{Kind: "result", Fields: []Field{{Label: "Result", Value: fmt.Sprintf("%+v", v)}}}
	}
}

// FormatBytes renders a byte count in binary units
func FormatBytes(n int64) string {
	return units.BytesSize(float64(n))
}

func planDocument(p *types.MigrationPlan) Document {
	doc := Document{
		Kind:   "plan",
		Title:  "Migration plan for " + displayName(p.Entry.Name, p.SourcePath),
		Status: StatusInfo,
		Fields: []Field{
			{"Plan", p.ID},
			{"Source", p.SourcePath},
			{"Target", p.TargetPath},
			{"Size", FormatBytes(p.TotalSizeBytes)},
			{"Available", FormatBytes(p.AvailableSpaceBytes)},
			{"Link type", string(p.RecommendedLinkType)},
		},
	}
	if !p.HasEnoughSpace() {
		doc.Status = StatusFailure
		doc.Notes = append(doc.Notes, fmt.Sprintf("Not enough space: %s more is needed",
			FormatBytes(p.TotalSizeBytes-p.AvailableSpaceBytes)))
	}

	ops := Table{Title: "Moves", Header: []string{"Item", "Kind", "Size"}}
	for _, op := range p.FileOperations {
		kind := "file"
		if op.IsDir {
			kind = "dir"
		}
		ops.Rows = append(ops.Rows, []string{baseName(op.Source), kind, FormatBytes(op.SizeBytes)})
	}
	doc.Tables = append(doc.Tables, ops)
	return doc
}

func migrationDocument(r *types.MigrationResult) Document {
	doc := Document{Kind: "migration", Title: "Migration", Status: StatusSuccess}
	if r.OperationID != "" {
		doc.Fields = append(doc.Fields, Field{"Operation", r.OperationID})
	}
	doc.Fields = append(doc.Fields,
		Field{"Link", r.LinkPath},
		Field{"Target", r.TargetPath},
		Field{"Moved", FormatBytes(r.BytesMoved)},
	)
	if r.LinkType != "" {
		doc.Fields = append(doc.Fields, Field{"Link type", string(r.LinkType)})
	}

	switch {
	case r.Success:
		doc.Title = "Migration complete"
	case r.RolledBack:
		doc.Title = "Migration failed and was rolled back"
		doc.Status = StatusFailure
	case r.RollbackError != "":
		doc.Title = "Migration failed, rollback incomplete"
		doc.Status = StatusFailure
		doc.Notes = append(doc.Notes, "Rollback error: "+r.RollbackError)
	default:
		doc.Title = "Migration did not complete"
		doc.Status = StatusFailure
	}
	if r.Error != "" {
		doc.Notes = append([]string{r.Error}, doc.Notes...)
	}

	if r.RegistryReport != nil {
		doc.Fields = append(doc.Fields, Field{"Registry", fmt.Sprintf("%d updated, %d failed",
			r.RegistryReport.UpdatedCount, r.RegistryReport.FailedCount)})
		if r.RegistryReport.FailedCount > 0 && doc.Status == StatusSuccess {
			doc.Status = StatusWarning
		}
		doc.Tables = append(doc.Tables, registryTable(r.RegistryReport))
	}
	return doc
}

func rollbackDocument(r *types.RollbackResult) Document {
	doc := Document{
		Kind:   "rollback",
		Title:  "Rollback complete",
		Status: StatusSuccess,
		Fields: []Field{
			{"Operation", r.OperationID},
			{"Rollback", r.RollbackOperationID},
			{"Reverted", strconv.Itoa(r.StepsReverted)},
			{"Failed", strconv.Itoa(r.StepsFailed)},
		},
	}
	if !r.Success {
		doc.Title = "Rollback incomplete"
		doc.Status = StatusFailure
	}
	doc.Notes = append(doc.Notes, r.Errors...)
	return doc
}

func historyDocument(records []*types.OperationRecord) Document {
	doc := Document{Kind: "history", Title: "Operation history", Status: StatusInfo}
	if len(records) == 0 {
		doc.Notes = []string{"No operations recorded"}
		return doc
	}
	t := Table{Header: []string{"ID", "Type", "Started", "Duration", "Result", "Steps", "Description"}}
	for _, rec := range records {
		t.Rows = append(t.Rows, []string{
			rec.ID,
			string(rec.Type),
			rec.StartTime.Local().Format(timeLayout),
			duration(rec),
			outcome(rec),
			strconv.Itoa(len(rec.Actions)),
			rec.Description,
		})
	}
	doc.Tables = []Table{t}
	return doc
}

func auditDocument(r *AuditReport) Document {
	doc := Document{Kind: "report", Title: "Audit report", Status: StatusInfo}
	if rec := r.Operation; rec != nil {
		doc.Title = string(rec.Type) + " " + rec.ID
		doc.Fields = []Field{
			{"Description", rec.Description},
			{"Started", rec.StartTime.Local().Format(timeLayout)},
			{"Duration", duration(rec)},
			{"Result", outcome(rec)},
			{"Rollbackable", yesNo(rec.IsRollbackable())},
		}
		switch {
		case rec.IsOpen():
			doc.Status = StatusWarning
		case rec.Succeeded():
			doc.Status = StatusSuccess
		default:
			doc.Status = StatusFailure
		}

		actions := Table{Title: "Actions", Header: []string{"#", "Time", "Action", "Description", "Reversible"}}
		for i, a := range rec.Actions {
			actions.Rows = append(actions.Rows, []string{
				strconv.Itoa(i + 1),
				a.Timestamp.Local().Format("15:04:05"),
				a.ActionType,
				a.Description,
				yesNo(a.CanRollback),
			})
		}
		doc.Tables = append(doc.Tables, actions)
	}
	if r.Registry != nil {
		doc.Fields = append(doc.Fields,
			Field{"Old path", r.Registry.OldPath},
			Field{"New path", r.Registry.NewPath},
			Field{"Registry", fmt.Sprintf("%d updated, %d failed", r.Registry.UpdatedCount, r.Registry.FailedCount)},
		)
		doc.Tables = append(doc.Tables, registryTable(r.Registry))
	}
	return doc
}

func registryTable(r *types.RegistryUpdateReport) Table {
	t := Table{Title: "Registry values", Header: []string{"Key", "Value", "Replacements", "Result"}}
	for _, e := range r.Entries {
		result := "updated"
		if !e.Success {
			result = "failed"
			if e.Error != "" {
				result += ": " + e.Error
			}
		}
		t.Rows = append(t.Rows, []string{e.Reference.KeyPath, e.Reference.ValueName, strconv.Itoa(e.Replacements), result})
	}
	return t
}

func stateDocument(s types.InstallState) Document {
	doc := Document{
		Kind:   "state",
		Title:  s.Path,
		Fields: []Field{{"State", string(s.State)}},
	}
	switch s.State {
	case types.StateMigrated:
		doc.Status = StatusSuccess
	case types.StateOriginal:
		doc.Status = StatusInfo
	default:
		doc.Status = StatusFailure
	}
	if s.Link != nil {
		doc.Fields = append(doc.Fields,
			Field{"Link type", string(s.Link.LinkType)},
			Field{"Target", s.Link.TargetPath},
		)
	}
	if s.Problem != "" {
		doc.Notes = []string{s.Problem}
	}
	return doc
}

func templatesDocument(templates []types.NamingTemplate) Document {
	sorted := make([]types.NamingTemplate, len(templates))
	copy(sorted, templates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsPreset != sorted[j].IsPreset {
			return sorted[i].IsPreset
		}
		return sorted[i].ID < sorted[j].ID
	})

	t := Table{Header: []string{"ID", "Pattern", "Description"}}
	for _, tmpl := range sorted {
		t.Rows = append(t.Rows, []string{tmpl.ID, tmpl.Pattern, tmpl.Description})
	}
	return Document{Kind: "templates", Title: "Naming templates", Status: StatusInfo, Tables: []Table{t}}
}

func templateCheckDocument(c *TemplateCheck) Document {
	doc := Document{
		Kind:   "template",
		Title:  "Template " + c.Pattern,
		Status: StatusSuccess,
		Fields: []Field{{"Valid", yesNo(c.Result.IsValid)}},
	}
	if c.Example != "" {
		doc.Fields = append(doc.Fields, Field{"Example", c.Example})
	}
	if !c.Result.IsValid {
		doc.Status = StatusFailure
	}
	doc.Notes = append(doc.Notes, c.Result.Errors...)
	return doc
}

func duration(rec *types.OperationRecord) string {
	if rec.EndTime == nil {
		return "-"
	}
	return rec.EndTime.Sub(rec.StartTime).Round(time.Millisecond).String()
}

func outcome(rec *types.OperationRecord) string {
	switch {
	case rec.IsOpen():
		return "open"
	case rec.Succeeded():
		return "success"
	default:
		return "failed"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func displayName(name, path string) string {
	if name != "" {
		return name
	}
	return baseName(path)
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
