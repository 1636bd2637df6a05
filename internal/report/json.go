package report

import (
	"fmt"

	"github.com/harrison/toolgap/internal/aggregate"
)

// RenderStatsJSON writes the rates in the stats-file layout. Condition-level
// groups are folded into their model first.
func RenderStatsJSON(r *Report) ([]byte, error) {
	if r.Rates == nil {
		return nil, fmt.Errorf("no label rates to write")
	}

	doc := &aggregate.StatsDocument{
		RunID:   r.RunID,
		Totals:  r.Totals,
		Summary: r.Rates.ByModel(),
	}
	data, err := aggregate.EncodeStatsFile(doc)
	if err != nil {
		return nil, fmt.Errorf("encode stats file: %w", err)
	}
	return append(data, '\n'), nil
}
