package domain

import "time"

// AggregateFeedback folds the feedback of every profile into totals.
func AggregateFeedback(profiles []Profile) FeedbackStats {
	stats := FeedbackStats{TotalProfiles: len(profiles)}
	for _, p := range profiles {
		if len(p.Feedback) > 0 {
			stats.ProfilesWithFeedback++
		}
		for _, f := range p.Feedback {
			if f.Positive {
				stats.Positive++
			} else {
				stats.Negative++
			}
		}
	}
	return stats
}

// FeedbackTime returns now, or the last recorded timestamp if the wall clock
// stepped back, so a feedback sequence never goes backwards in time.
func FeedbackTime(history []Feedback, now time.Time) time.Time {
	if n := len(history); n > 0 && now.Before(history[n-1].Timestamp) {
		return history[n-1].Timestamp
	}
	return now
}
