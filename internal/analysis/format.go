package analysis

const (
	minFormatGroup        = 2
	minBaselineEngagement = 1.0
	maxFormatImprovement  = 200.0
)

// AnalyzeFormatEffect compares median engagement of videos whose titles carry
// a format keyword against those that do not.
func AnalyzeFormatEffect(videos []VideoMetrics) FormatEffects {
	var with, without []float64
	for _, v := range videos {
		if v.HasFormat {
			with = append(with, v.EngagementPer1K)
		} else {
			without = append(without, v.EngagementPer1K)
		}
	}

	if len(with) < minFormatGroup || len(without) < minFormatGroup {
		return FormatEffects{}
	}

	engWith := median(with)
	engWithout := median(without)
	if engWithout < minBaselineEngagement || engWith <= engWithout {
		return FormatEffects{}
	}

	improvement := (engWith - engWithout) / engWithout * 100
	if improvement > maxFormatImprovement {
		improvement = maxFormatImprovement
	}

	return FormatEffects{
		Format: &FormatEffect{
			CountWith:         len(with),
			CountWithout:      len(without),
			EngagementWith:    roundTo(engWith, 2),
			EngagementWithout: roundTo(engWithout, 2),
			ImprovementPct:    roundTo(improvement, 2),
		},
	}
}
