package loadgen

import (
	"fmt"

	"github.com/okian/recall/internal/domain/retention"
)

// Diff lists every counter where got differs from want, as
// "window.label: want N, got M".
func Diff(want, got retention.Report) []string {
	var out []string
	for _, w := range retention.Windows() {
		wb, gb := want.Bucket(w), got.Bucket(w)
		for _, l := range retention.Labels() {
			if wb.Count(l) != gb.Count(l) {
				out = append(out, fmt.Sprintf("%s.%s: want %d, got %d", w, l, wb.Count(l), gb.Count(l)))
			}
		}
	}
	return out
}
