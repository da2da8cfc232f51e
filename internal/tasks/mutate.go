package tasks

// SetStatus rewrites the marker of the first task line whose ID equals taskID.
// Only that one byte changes; when no line matches the document is returned
// unchanged. IDs are compared as whole tokens, so "1.1" never touches "1.10".
func SetStatus(document string, taskID string, newStatus Status) string {
	offset := -1
	scan(document, func(m lineMatch) bool {
		if m.id == taskID {
			offset = m.markerOffset
			return false
		}
		return true
	})

	if offset < 0 || document[offset] == newStatus.Marker() {
		return document
	}

	b := []byte(document)
	b[offset] = newStatus.Marker()
	return string(b)
}
