package source

// StaticSource serves entries given directly on the command line.
// MarkDone is a no-op; there is no backing store to update.
type StaticSource struct {
	items []QueueItem
}

// NewStaticSource parses raw entries into a fixed queue.
func NewStaticSource(entries []string) *StaticSource {
	items := make([]QueueItem, 0, len(entries))
	for i, raw := range entries {
		text, hint := ParseEntry(raw)
		if text == "" {
			continue
		}
		items = append(items, QueueItem{Text: text, Hint: hint, Row: i})
	}
	return &StaticSource{items: items}
}

func (s *StaticSource) Name() string {
	return "command line"
}

func (s *StaticSource) Fetch(limit int) ([]QueueItem, error) {
	if limit > 0 && len(s.items) > limit {
		return s.items[:limit], nil
	}
	return s.items, nil
}

func (s *StaticSource) MarkDone(QueueItem) error {
	return nil
}
