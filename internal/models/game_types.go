package models

type GameID string

const (
	GameLottery GameID = "lottery"
	GameDino    GameID = "dinogame"
)

func (g GameID) Valid() bool {
	switch g {
	case GameLottery, GameDino:
		return true
	default:
		return false
	}
}

// SlotSymbols are the reel faces of the free lottery, in payout order.
var SlotSymbols = []string{"🍒", "🍋", "🍇", "🍊", "7️⃣", "⭐", "💎"}

// HiddenSlot is shown on a reel before the first spin.
const HiddenSlot = "❓"

const ReelCount = 3
