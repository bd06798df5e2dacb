package rotation

import "github.com/jonathan/jobs-newsroom/internal/types"

// NextCategory picks the roundup category with the fewest published roundups.
// Ties go to the category listed first in types.CategoryRotation; categories
// missing from counts count as zero.
func NextCategory(counts map[types.Category]int) types.Category {
	rotation := types.CategoryRotation

	best := rotation[0]
	bestCount := counts[best]
	for _, c := range rotation[1:] {
		if counts[c] < bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}
