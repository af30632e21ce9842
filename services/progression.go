package services

// XPPerLevel is the width of every level band.
const XPPerLevel = 100

// LevelInfo is the derived position of an XP total on the level ladder.
type LevelInfo struct {
	Level       int   `json:"level"`
	XPIntoLevel int64 `json:"xp_into_level"`
	XPToNext    int64 `json:"xp_to_next"`
}

// Progress is the fraction of the current level already earned, in [0, 1).
func (l LevelInfo) Progress() float64 {
	return float64(l.XPIntoLevel) / float64(XPPerLevel)
}

// LevelFor maps accumulated XP to its level: level = xp/100 + 1.
// Callers reject negative XP; it is treated as zero here.
func LevelFor(xp int64) LevelInfo {
	if xp < 0 {
		xp = 0
	}
	into := xp % XPPerLevel
	return LevelInfo{
		Level:       int(xp/XPPerLevel) + 1,
		XPIntoLevel: into,
		XPToNext:    XPPerLevel - into,
	}
}

// RankThresholds: levels required before rank-up
var RankThresholds = []struct {
	MinLevel int
	Title    string
}{
	{1, "Rookie"},
	{5, "Bronze"},
	{10, "Silver"},
	{25, "Gold"},
	{50, "Platinum"},
	{75, "Diamond"},
	{100, "Legend"},
}

// RankFor returns the presentation title for a level.
func RankFor(level int) string {
	for i := len(RankThresholds) - 1; i >= 0; i-- {
		if level >= RankThresholds[i].MinLevel {
			return RankThresholds[i].Title
		}
	}
	return RankThresholds[0].Title
}
