package env

import (
	"strings"

	"github.com/atelier-ai/atelier/comms"
)

// terminalTags are the action tags whose messages mark the end of a plan
// step outright.
var terminalTags = map[comms.ActionTag]struct{}{
	comms.TagWritePRD:      {},
	comms.TagWriteDesign:   {},
	comms.TagWriteTasks:    {},
	comms.TagSummarizeCode: {},
}

// IsSoftwareTaskFinished classifies whether a message signals completion of
// the current plan step. This is a hard-coded heuristic over cause-by tags
// (plus a substring match for the test-retry cap), not a task-graph fact;
// keep its coverage as-is absent product clarification.
func IsSoftwareTaskFinished(msg *comms.Message) bool {
	if _, ok := terminalTags[msg.CauseBy]; ok {
		return true
	}
	return msg.CauseBy == comms.TagWriteTest && strings.Contains(msg.Content, "Exceeding")
}
