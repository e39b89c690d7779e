package stage

import (
	"strings"

	"github.com/reusee/relic/swf"
)

// timeline is a clip's frames, split at ShowFrame tags.
type timeline struct {
	frames  [][]swf.Tag
	labels  map[string]int
	current int
	playing bool
}

func newTimeline(tags []swf.Tag) *timeline {
	t := &timeline{
		labels:  make(map[string]int),
		current: -1,
		playing: true,
	}
	var frame []swf.Tag
	for _, tag := range tags {
		switch tag := tag.(type) {
		case swf.ShowFrame:
			t.frames = append(t.frames, frame)
			frame = nil
			continue
		case swf.End:
			continue
		case *swf.FrameLabel:
			key := strings.ToLower(tag.Name)
			if _, ok := t.labels[key]; !ok {
				t.labels[key] = len(t.frames)
			}
		}
		frame = append(frame, tag)
	}
	if len(frame) > 0 || len(t.frames) == 0 {
		t.frames = append(t.frames, frame)
	}
	return t
}

func (t *timeline) label(name string) (int, bool) {
	i, ok := t.labels[strings.ToLower(name)]
	return i, ok
}
