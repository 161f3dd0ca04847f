package visualization

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nvandessel/pedigree/internal/runner"
)

// WriteCSV writes the merged lineage table (time,paternal,maternal), a blank
// line, then the population samples (time,population). Counts for a lineage
// that was not computed are left empty.
func WriteCSV(w io.Writer, res *runner.Result) error {
	if res == nil {
		return fmt.Errorf("result is required")
	}
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"time", "paternal", "maternal"}); err != nil {
		return err
	}
	for _, r := range LineageRows(res.Paternal, res.Maternal) {
		if err := cw.Write([]string{formatTime(r.Time), formatCount(r.Paternal), formatCount(r.Maternal)}); err != nil {
			return err
		}
	}

	if len(res.Samples) > 0 {
		if err := cw.Write([]string{}); err != nil {
			return err
		}
		if err := cw.Write([]string{"time", "population"}); err != nil {
			return err
		}
		for _, s := range res.Samples {
			if err := cw.Write([]string{formatTime(s.Time), strconv.Itoa(s.Population)}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func formatCount(n int) string {
	if n < 0 {
		return ""
	}
	return strconv.Itoa(n)
}
