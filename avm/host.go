package avm

// Host is the timeline a script controls. Targets are clip paths as
// returned by Resolve; unknown targets are ignored by the host.
type Host interface {
	// Resolve finds a clip by path relative to the clip at from.
	Resolve(from, path string) (*Object, bool)
	Play(target string)
	Stop(target string)
	NextFrame(target string)
	PrevFrame(target string)
	// GotoFrame takes a zero based frame index.
	GotoFrame(target string, frame int)
	GotoLabel(target, label string) bool
	Trace(message string)
	GetURL(url, window string)
}

type nopHost struct{}

func (nopHost) Resolve(from, path string) (*Object, bool) { return nil, false }
func (nopHost) Play(string)                              {}
func (nopHost) Stop(string)                              {}
func (nopHost) NextFrame(string)                         {}
func (nopHost) PrevFrame(string)                         {}
func (nopHost) GotoFrame(string, int)                    {}
func (nopHost) GotoLabel(string, string) bool            { return false }
func (nopHost) Trace(string)                             {}
func (nopHost) GetURL(string, string)                    {}
