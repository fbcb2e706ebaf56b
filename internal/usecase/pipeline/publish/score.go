// Package publish implements the publish stage (§4.8): writing synthesised
// articles to published_articles keyed by cluster id, applying the update
// trigger and cooldown rules, and marking consumed source items.
package publish

import "newsloop/internal/domain/entity"

const (
	highScoreTrigger = 850
	volumeTrigger    = 2
)

// ClusterScore computes the §4.8 cluster-level score:
// min(round(avg + min(n*10, 100)), 1000).
func ClusterScore(memberScores []int) int {
	if len(memberScores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range memberScores {
		sum += s
	}
	avg := float64(sum) / float64(len(memberScores))
	bonus := len(memberScores) * 10
	if bonus > 100 {
		bonus = 100
	}
	score := roundHalfUp(avg) + bonus
	if score > 1000 {
		score = 1000
	}
	return score
}

func roundHalfUp(f float64) int {
	if f < 0 {
		return -roundHalfUp(-f)
	}
	return int(f + 0.5)
}

// ShouldUpdate decides whether an existing PublishedArticle should be
// regenerated this cycle, per §4.8's triggers and cooldown.
func ShouldUpdate(newMembers, maxNewScore int, cooldownElapsed bool) bool {
	if !cooldownElapsed {
		return false
	}
	if maxNewScore >= highScoreTrigger {
		return true
	}
	if newMembers >= volumeTrigger {
		return true
	}
	return false
}

// updateTrigger reports which of §4.8's two regeneration triggers fired,
// preferring the high-score trigger when both apply.
func updateTrigger(newMembers, maxNewScore int) entity.UpdateTrigger {
	if maxNewScore >= highScoreTrigger {
		return entity.TriggerNewHighScore
	}
	return entity.TriggerVolume
}
