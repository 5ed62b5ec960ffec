package ddl

import "github.com/stackplane/stackplane/infra"

// IgnorableOperation names an operation kind a deployment may exclude from
// migration plans. Filtering happens in two places: tables are normalized
// before diffing so ignored drift never triggers a drop+create, and the plan
// is filtered after ordering so stray operations of an ignored kind are
// removed.
type IgnorableOperation string

const (
	IgnoreAddTableIndex   IgnorableOperation = "add_table_index"
	IgnoreModifyTableTTL  IgnorableOperation = "modify_table_ttl"
	IgnoreModifyColumnTTL IgnorableOperation = "modify_column_ttl"
)

// ParseIgnorableOperation maps a config string to a known operation kind.
func ParseIgnorableOperation(s string) (IgnorableOperation, bool) {
	switch IgnorableOperation(s) {
	case IgnoreAddTableIndex, IgnoreModifyTableTTL, IgnoreModifyColumnTTL:
		return IgnorableOperation(s), true
	}
	return "", false
}

// Matches reports whether the operation is of this ignorable kind.
func (ig IgnorableOperation) Matches(op Operation) bool {
	switch ig {
	case IgnoreAddTableIndex:
		return op.AddTableIndex != nil
	case IgnoreModifyTableTTL:
		return op.ModifyTableTTL != nil
	case IgnoreModifyColumnTTL:
		if op.ModifyTableColumn == nil {
			return false
		}
		// Only a pure column-TTL change counts; a modify that also changes
		// the type or default must survive filtering.
		before := op.ModifyTableColumn.BeforeColumn
		after := op.ModifyTableColumn.AfterColumn
		before.TTL = ""
		after.TTL = ""
		return before.Equal(after)
	}
	return false
}

// NormalizeTableForDiff strips the fields covered by the ignored operation
// kinds so the classifier never sees them differ.
func NormalizeTableForDiff(t infra.Table, ignore []IgnorableOperation) infra.Table {
	if len(ignore) == 0 {
		return t
	}
	normalized := t
	for _, ig := range ignore {
		switch ig {
		case IgnoreAddTableIndex:
			normalized.Indexes = nil
		case IgnoreModifyTableTTL:
			normalized.TTL = ""
		case IgnoreModifyColumnTTL:
			cols := make([]infra.Column, len(normalized.Columns))
			copy(cols, normalized.Columns)
			for i := range cols {
				cols[i].TTL = ""
			}
			normalized.Columns = cols
		}
	}
	return normalized
}
