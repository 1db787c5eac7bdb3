package model

// Score is the compatibility between two users' rating sets.
// The zero value means the users share no rated fountain.
type Score struct {
	Correlation        float64 // Pearson over per-fountain means, in [-1,1]
	WeightedSimilarity float64 // in [0,1]
	Overall            float64 // in [0,1]
	SharedFountains    int
	Confidence         float64 // in [0,1]
}

// Profile summarises a candidate user.
type Profile struct {
	UserID      string
	DisplayName string
	RatingCount int
}

// Match is a candidate whose score met the match thresholds.
type Match struct {
	Profile Profile
	Score   Score
}
