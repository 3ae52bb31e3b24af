package predict

import "github.com/homevalai/homeval/internal/feature"

// Check reports whether every feature the target requires resolves to a
// non-absent value in the vector. The returned names are display labels for
// user feedback, in required-list order. No side effects.
func Check(spec Spec, vec feature.Vector) (bool, []string) {
	var missing []string
	for _, name := range spec.Required {
		if !vec.Has(name) {
			missing = append(missing, feature.LabelFor(name))
		}
	}
	return len(missing) == 0, missing
}
