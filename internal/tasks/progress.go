package tasks

import "fmt"

// Progress counts tasks by status.
type Progress struct {
	Total      int `json:"total"`
	Done       int `json:"done"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
}

// Summarize counts the tasks of a parsed document.
func Summarize(tasks []Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusDone:
			p.Done++
		case StatusInProgress:
			p.InProgress++
		default:
			p.Pending++
		}
	}
	return p
}

// Percent returns the share of done tasks, rounded half up.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Done*200 + p.Total) / (p.Total * 2)
}

// Ratio returns the share of done tasks in [0, 1].
func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// String renders "done/total (percent%)", or "0/0" for an empty list.
func (p Progress) String() string {
	if p.Total == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d (%d%%)", p.Done, p.Total, p.Percent())
}
