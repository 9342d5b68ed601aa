package course

// WesternStates lists the aid stations of the Western States 100 course in miles.
var WesternStates = []Checkpoint{
	{Name: "LyonRidge", Distance: 10.3},
	{Name: "RedStarRidge", Distance: 15.8},
	{Name: "DuncanCanyon", Distance: 24.4},
	{Name: "RobinsonFlat", Distance: 30.3},
	{Name: "MillersDefeat", Distance: 34.4},
	{Name: "DustyCorners", Distance: 38},
	{Name: "LastChance", Distance: 43.3},
	{Name: "DevilsThumb", Distance: 47.8},
	{Name: "ElDoradoCreek", Distance: 52.9},
	{Name: "MichiganBluff", Distance: 55.7},
	{Name: "Foresthill", Distance: 62},
	{Name: "Peachstone", Distance: 70.7},
	{Name: "FordsBar", Distance: 73},
	{Name: "RuckyChucky", Distance: 78},
	{Name: "GreenGate", Distance: 79.8},
	{Name: "AuburnLakeTrails", Distance: 85.2},
	{Name: "QuarryRd", Distance: 90.7},
	{Name: "PointedRocks", Distance: 94.3},
	{Name: "RobiePoint", Distance: 98.9},
	{Name: "Finish", Distance: 100.2},
}

// Default returns the Western States course.
func Default() *Course {
	return MustNew(WesternStates)
}
