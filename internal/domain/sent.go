package domain

// SentSet holds the links that were already delivered.
type SentSet map[string]struct{}

// NewSentSet builds a set from links, ignoring empty entries.
func NewSentSet(links ...string) SentSet {
	set := make(SentSet, len(links))
	for _, link := range links {
		set.Add(link)
	}
	return set
}

// Contains reports whether link was delivered.
func (s SentSet) Contains(link string) bool {
	_, ok := s[link]
	return ok
}

// Add records link; adding twice is harmless.
func (s SentSet) Add(link string) {
	if link == "" {
		return
	}
	s[link] = struct{}{}
}

// Len returns the number of delivered links.
func (s SentSet) Len() int {
	return len(s)
}
