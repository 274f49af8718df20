package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/initgraph/pkg/initgraph"
)

const (
	treeBranchConstant          = "├── "
	treeLastBranchConstant      = "└── "
	treeContinuationConstant    = "│   "
	treeBlankIndentConstant     = "    "
	treeRepeatedSuffixConstant  = " (see above)"
	treeOrderedMarkerConstant   = " [ordered]"
	treeOutcomeTemplateConstant = " (%s)"
)

// RenderTree writes the dependency graph as a forest rooted at tasks without dependencies.
// A task with several dependencies appears under each of them and is expanded only once.
// Outcomes are annotated when a report for the plan is supplied.
func RenderTree(writer io.Writer, plan initgraph.Plan, report *initgraph.Report) error {
	outcomes := map[initgraph.TaskID]initgraph.Outcome{}
	if report != nil {
		for _, record := range report.Records {
			outcomes[record.TaskID] = record.Outcome
		}
	}

	renderer := treeRenderer{
		writer:   writer,
		plan:     plan,
		outcomes: outcomes,
		expanded: map[initgraph.TaskID]bool{},
	}
	for _, root := range plan.Roots() {
		if renderError := renderer.render(root, "", "", ""); renderError != nil {
			return renderError
		}
	}
	return nil
}

type treeRenderer struct {
	writer   io.Writer
	plan     initgraph.Plan
	outcomes map[initgraph.TaskID]initgraph.Outcome
	expanded map[initgraph.TaskID]bool
}

func (renderer treeRenderer) render(identifier initgraph.TaskID, prefix string, branch string, childPrefix string) error {
	line := prefix + branch + renderer.label(identifier)
	if renderer.expanded[identifier] {
		line += treeRepeatedSuffixConstant
		_, writeError := fmt.Fprintln(renderer.writer, line)
		return writeError
	}
	renderer.expanded[identifier] = true
	if _, writeError := fmt.Fprintln(renderer.writer, line); writeError != nil {
		return writeError
	}

	dependents := renderer.plan.Dependents[identifier]
	for dependentIndex, dependent := range dependents {
		childBranch := treeBranchConstant
		nextPrefix := treeContinuationConstant
		if dependentIndex == len(dependents)-1 {
			childBranch = treeLastBranchConstant
			nextPrefix = treeBlankIndentConstant
		}
		if renderError := renderer.render(dependent, prefix+childPrefix, childBranch, nextPrefix); renderError != nil {
			return renderError
		}
	}
	return nil
}

func (renderer treeRenderer) label(identifier initgraph.TaskID) string {
	var builder strings.Builder
	builder.WriteString(string(identifier))
	if task, found := renderer.plan.Task(identifier); found && task.Class == initgraph.ClassOrdered {
		builder.WriteString(treeOrderedMarkerConstant)
	}
	if outcome, found := renderer.outcomes[identifier]; found {
		builder.WriteString(fmt.Sprintf(treeOutcomeTemplateConstant, outcome))
	}
	return builder.String()
}
