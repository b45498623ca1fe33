package ledger

import "go-savings/models"

var outcomeLabels = map[models.PublicTxStatus]string{
	models.PublicSuccess:  "Completed",
	models.PublicFailed:   "Failed",
	models.PublicReversed: "Reversed",
	models.PublicExpired:  "Expired",
}

// TimelineSteps builds the Created, Processing and outcome steps for a lifecycle.
// The result is freshly allocated and never shares pointers with lc.
func TimelineSteps(lc models.TxLifecycle) [3]models.TimelineStep {
	terminal := lc.Status.IsTerminal()

	created := models.TimelineStep{
		Status:      models.PublicPendingInit,
		Label:       "Created",
		Timestamp:   ms(lc.CreatedAt),
		IsActive:    lc.Status == models.PublicPendingInit,
		IsCompleted: true,
	}

	processing := models.TimelineStep{
		Status:      models.PublicInProgress,
		Label:       "Processing",
		IsActive:    lc.Status == models.PublicInProgress,
		IsCompleted: terminal,
	}
	// EXPIRED completes this step without stamping it.
	switch lc.Status {
	case models.PublicInProgress, models.PublicSuccess, models.PublicFailed, models.PublicReversed:
		processing.Timestamp = ms(lc.UpdatedAt)
	}

	outcome := models.TimelineStep{
		Status: models.PublicSuccess,
		Label:  outcomeLabels[models.PublicSuccess],
	}
	if terminal {
		outcome.Status = lc.Status
		outcome.Label = outcomeLabels[lc.Status]
		outcome.IsActive = true
		outcome.IsCompleted = true
		if lc.CompletedAt != nil {
			outcome.Timestamp = ms(*lc.CompletedAt)
		}
	}

	return [3]models.TimelineStep{created, processing, outcome}
}

func ms(v int64) *int64 {
	return &v
}
