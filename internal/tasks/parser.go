package tasks

import (
	"regexp"
	"strings"
)

var (
	// taskLine is the checklist grammar shared by Parse and SetStatus.
	// Submatches: 1 = marker, 2 = ID, 3 = trailing text.
	taskLine = regexp.MustCompile(`^\s*- \[([ x-])\] (\d+(?:\.\d+)*)\. (.+)$`)

	// requirementsAnnotation matches "_Requirements: 1.1, 2_" and "_Requirement: 3_".
	requirementsAnnotation = regexp.MustCompile(`_Requirements?: ([\d., ]+)_`)

	idPattern = regexp.MustCompile(`^\d+(?:\.\d+)*$`)
)

// lineMatch locates one task line inside a document.
type lineMatch struct {
	// markerOffset is the byte offset of the status marker in the document.
	markerOffset int
	marker       byte
	id           string
	text         string
}

// scan calls fn for every task line in document order until fn returns false.
// Line terminators ("\n" or "\r\n") are never part of a match.
func scan(document string, fn func(m lineMatch) bool) {
	offset := 0
	for offset <= len(document) {
		end := strings.IndexByte(document[offset:], '\n')
		var line string
		if end < 0 {
			line = document[offset:]
		} else {
			line = document[offset : offset+end]
		}
		line = strings.TrimSuffix(line, "\r")

		if loc := taskLine.FindStringSubmatchIndex(line); loc != nil {
			m := lineMatch{
				markerOffset: offset + loc[2],
				marker:       line[loc[2]],
				id:           line[loc[4]:loc[5]],
				text:         line[loc[6]:loc[7]],
			}
			if !fn(m) {
				return
			}
		}

		if end < 0 {
			return
		}
		offset += end + 1
	}
}

// Parse converts a checklist document into tasks in document order.
// Lines that do not follow the checklist grammar are skipped.
func Parse(document string) []Task {
	tasks := make([]Task, 0)

	scan(document, func(m lineMatch) bool {
		content, requirements := splitRequirements(m.text)
		tasks = append(tasks, Task{
			ID:           m.id,
			Status:       statusFromMarker(m.marker),
			Content:      content,
			Subtasks:     []string{},
			Requirements: requirements,
			ParentID:     parentOf(m.id),
		})
		return true
	})

	link(tasks)
	return tasks
}

// link appends every task to the Subtasks of its parent, if the parent exists.
// The first task carrying an ID wins when IDs are duplicated.
func link(tasks []Task) {
	first := make(map[string]int, len(tasks))
	for i := range tasks {
		if _, ok := first[tasks[i].ID]; !ok {
			first[tasks[i].ID] = i
		}
	}

	for i := range tasks {
		if tasks[i].ParentID == "" {
			continue
		}
		p, ok := first[tasks[i].ParentID]
		if !ok {
			continue
		}
		if !contains(tasks[p].Subtasks, tasks[i].ID) {
			tasks[p].Subtasks = append(tasks[p].Subtasks, tasks[i].ID)
		}
	}
}

// splitRequirements removes the first requirement annotation from text and
// returns the remaining content and the requirement IDs it listed.
func splitRequirements(text string) (string, []string) {
	requirements := []string{}

	loc := requirementsAnnotation.FindStringSubmatchIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), requirements
	}

	for _, token := range strings.Split(text[loc[2]:loc[3]], ",") {
		if token = strings.TrimSpace(token); token != "" {
			requirements = append(requirements, token)
		}
	}

	content := text[:loc[0]] + text[loc[1]:]
	return strings.TrimSpace(content), requirements
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
