// Package rotation decides what the pipeline generates next: the content type cycle,
// the least-covered roundup category, and whether a run may start at all.
package rotation

import "github.com/jonathan/jobs-newsroom/internal/types"

// NextContentType returns the content type that follows the last one used.
// With no prior type (or one no longer in the rotation) it starts the cycle over.
func NextContentType(state types.GenerationState) types.ContentType {
	rotation := types.ContentTypeRotation

	current := -1
	if state.LastContentType != nil {
		for i, ct := range rotation {
			if ct == *state.LastContentType {
				current = i
				break
			}
		}
	}

	return rotation[(current+1)%len(rotation)]
}
