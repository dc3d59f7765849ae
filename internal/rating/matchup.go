package rating

// Matchup rates two sides that play each other repeatedly, such as the two
// partnerships of a simulation batch seated with different policies.
type Matchup struct {
	Sides [2]Rating
	Wins  [2]int
	Draws int
}

// NewMatchup starts both sides unrated.
func NewMatchup() *Matchup {
	return &Matchup{Sides: [2]Rating{Default(), Default()}}
}

// Record applies one game. winner is 0 or 1; any other value is a draw.
// Both sides update from their pre-game ratings.
func (m *Matchup) Record(winner int) {
	var score float64
	switch winner {
	case 0:
		score = 1
		m.Wins[0]++
	case 1:
		score = 0
		m.Wins[1]++
	default:
		score = 0.5
		m.Draws++
	}
	a, b := m.Sides[0], m.Sides[1]
	m.Sides[0] = Update(a, b, score)
	m.Sides[1] = Update(b, a, 1-score)
}

// EloGap is side 0's Elo minus side 1's.
func (m *Matchup) EloGap() float64 {
	return m.Sides[0].Elo() - m.Sides[1].Elo()
}
