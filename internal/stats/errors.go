package stats

import "github.com/TobiSchelling/facultypulse/internal/professor"

// ErrorGroup is every record error sharing one message.
type ErrorGroup struct {
	Message   string   `json:"error"`
	RecordIDs []string `json:"professor_ids"`
}

// Count returns the number of records in the group.
func (g ErrorGroup) Count() int { return len(g.RecordIDs) }

// GroupErrors groups errors by message in first-seen order.
func GroupErrors(errs []professor.RecordError) []ErrorGroup {
	var groups []ErrorGroup
	index := make(map[string]int)
	for _, e := range errs {
		i, ok := index[e.Message]
		if !ok {
			i = len(groups)
			index[e.Message] = i
			groups = append(groups, ErrorGroup{Message: e.Message})
		}
		groups[i].RecordIDs = append(groups[i].RecordIDs, e.RecordID)
	}
	return groups
}
