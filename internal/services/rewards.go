package services

import (
	"fmt"
	"math/rand"
	"time"
)

type RewardCard struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Quote   string `json:"quote"`
	Emoji   string `json:"emoji"`
}

type StreakBonus struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Bonus   string `json:"bonus"`
}

type Celebration struct {
	Reward RewardCard   `json:"reward"`
	Streak *StreakBonus `json:"streak,omitempty"`
	Tip    string       `json:"tip"`
	Deals  []Deal       `json:"deals"`
}

func DailyReward(weekday time.Weekday) RewardCard {
	switch weekday {
	case time.Monday:
		return RewardCard{Title: "Monday Warrior!", Message: "You crushed it! Starting the week strong.", Quote: "The secret of getting ahead is getting started.", Emoji: "🚀"}
	case time.Tuesday:
		return RewardCard{Title: "On Fire!", Message: "Two days down! You're building momentum.", Quote: "Success is the sum of small efforts repeated daily.", Emoji: "⚡"}
	case time.Wednesday:
		return RewardCard{Title: "Halfway Hero!", Message: "Midweek champion! Keep pushing forward.", Quote: "The only way to do great work is to love what you do.", Emoji: "🌟"}
	case time.Thursday:
		return RewardCard{Title: "Almost There!", Message: "Thursday triumph! The weekend is in sight.", Quote: "Don't watch the clock; do what it does. Keep going.", Emoji: "👑"}
	case time.Friday:
		return RewardCard{Title: "Friday Champion!", Message: "You made it! What an incredible week.", Quote: "The harder you work, the luckier you get.", Emoji: "🏆"}
	case time.Saturday:
		return RewardCard{Title: "Weekend Warrior!", Message: "Saturday success! You're unstoppable.", Quote: "Your limitation is only your imagination.", Emoji: "✨"}
	default:
		return RewardCard{Title: "Sunday Star!", Message: "Even on Sunday! That's dedication.", Quote: "Great things never come from comfort zones.", Emoji: "💫"}
	}
}

// StreakBonusFor returns nil below three completions.
func StreakBonusFor(completedToday int) *StreakBonus {
	switch {
	case completedToday >= 10:
		return &StreakBonus{
			Title:   "LEGENDARY STREAK!",
			Message: fmt.Sprintf("%d tasks completed today! You're a productivity machine!", completedToday),
			Bonus:   "10x Productivity Multiplier",
		}
	case completedToday >= 5:
		return &StreakBonus{
			Title:   "SUPER STREAK!",
			Message: fmt.Sprintf("%d tasks done! You're on fire!", completedToday),
			Bonus:   "5x Productivity Boost",
		}
	case completedToday >= 3:
		return &StreakBonus{
			Title:   "GREAT STREAK!",
			Message: fmt.Sprintf("%d tasks completed! Keep it up!", completedToday),
			Bonus:   "3x Momentum Builder",
		}
	default:
		return nil
	}
}

func motivationalTips() []string {
	return []string{
		"Pro tip: Take a 5-minute break before your next task!",
		"Remember: Small progress is still progress.",
		"Time blocking works! You're proving it right now.",
		"Focus on one task at a time. You're doing great!",
		"Every completed task is a win. Celebrate it!",
		"You're building momentum. Keep going!",
		"Consistency beats perfection. You're consistent!",
		"Your future self will thank you for this work.",
		"You're not just completing tasks, you're building habits.",
		"Energy follows action. You're creating energy!",
	}
}

func MotivationalTip(source *rand.Rand) string {
	tips := motivationalTips()
	if source == nil {
		return tips[rand.Intn(len(tips))]
	}
	return tips[source.Intn(len(tips))]
}

func BuildCelebration(now time.Time, location *time.Location, completedToday int, deals []Deal, source *rand.Rand) Celebration {
	if location == nil {
		location = time.UTC
	}
	if deals == nil {
		deals = []Deal{}
	}
	return Celebration{
		Reward: DailyReward(now.In(location).Weekday()),
		Streak: StreakBonusFor(completedToday),
		Tip:    MotivationalTip(source),
		Deals:  deals,
	}
}
