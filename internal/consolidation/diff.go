package consolidation

import "github.com/sergi/go-diff/diffmatchpatch"

// changeRatio reports the fraction of oldText that changed in newText,
// used to log how much a partial re-consolidation (a conversation that
// gained chunks since the last tick) actually rewrote.
func changeRatio(oldText, newText string) float64 {
	if oldText == "" && newText == "" {
		return 0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)

	var changed, total int
	for _, d := range diffs {
		n := len(d.Text)
		total += n
		if d.Type != diffmatchpatch.DiffEqual {
			changed += n
		}
	}
	if total == 0 {
		return 0
	}
	return float64(changed) / float64(total)
}
