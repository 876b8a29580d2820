// Package detector decides whether a new feed snapshot differs from the last
// rendered one in any field that affects the panel.
package detector

import "github.com/genricoloni/nowink/internal/domain"

// Changed compares next against the previously committed state.
// A nil prev (nothing rendered yet) always counts as a change.
func Changed(prev *domain.NowPlayingState, next domain.NowPlayingState) bool {
	if prev == nil {
		return true
	}
	return !equalText(prev.Title, next.Title) ||
		!equalText(prev.Artist, next.Artist) ||
		!equalText(prev.Album, next.Album) ||
		!equalText(prev.ImageURL, next.ImageURL) ||
		prev.IsPlaying != next.IsPlaying ||
		prev.HasError() != next.HasError()
}

func equalText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
