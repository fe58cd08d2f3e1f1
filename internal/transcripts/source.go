package transcripts

type SourceKind string

const (
	KindYouTube SourceKind = "youtube" // Streaming service video, identifier is the YouTube video ID.
	KindHTML5   SourceKind = "html5"   // Locally hosted file(s), identifier is the file name without extension.
)

// VideoSource is one logical video reference of a component.
type VideoSource struct {
	Kind           SourceKind `json:"mode"`
	Identifier     string     `json:"video"`
	LocalFileNames []string   `json:"files,omitempty"`
}

// SourceProvider is the read-only oracle for the video sources of the component being edited.
// It never fails, no sources is an empty slice.
type SourceProvider interface {
	VideoSources() []VideoSource
}

// SourceProviderFunc adapts a function to a SourceProvider.
type SourceProviderFunc func() []VideoSource

func (f SourceProviderFunc) VideoSources() []VideoSource {
	return f()
}

// SourceGroup is every source sharing one identifier, in the order they were given.
type SourceGroup struct {
	Identifier string
	Sources    []VideoSource
}

// FileNames returns all local file names of the group, in order.
func (g SourceGroup) FileNames() []string {
	var names []string
	for _, s := range g.Sources {
		names = append(names, s.LocalFileNames...)
	}
	return names
}

// Group groups the sources by their identifier.
// Groups are ordered by first appearance and sources keep their relative order,
// nothing is deduplicated.
func Group(sources []VideoSource) []SourceGroup {
	index := make(map[string]int, len(sources))
	groups := make([]SourceGroup, 0, len(sources))
	for _, s := range sources {
		i, ok := index[s.Identifier]
		if !ok {
			i = len(groups)
			index[s.Identifier] = i
			groups = append(groups, SourceGroup{Identifier: s.Identifier})
		}
		groups[i].Sources = append(groups[i].Sources, s)
	}
	return groups
}

// GroupedSources is Group as a map, the shape the templates index into.
func GroupedSources(sources []VideoSource) map[string][]VideoSource {
	m := make(map[string][]VideoSource, len(sources))
	for _, s := range sources {
		m[s.Identifier] = append(m[s.Identifier], s)
	}
	return m
}

// Flatten reverses Group.
func Flatten(groups []SourceGroup) []VideoSource {
	var n int
	for _, g := range groups {
		n += len(g.Sources)
	}

	sources := make([]VideoSource, 0, n)
	for _, g := range groups {
		sources = append(sources, g.Sources...)
	}
	return sources
}

// HTML5Files returns the local file names of every html5 source, in order.
func HTML5Files(sources []VideoSource) []string {
	var files []string
	for _, s := range sources {
		if s.Kind == KindHTML5 {
			files = append(files, s.LocalFileNames...)
		}
	}
	return files
}
