package garden

// PresetStacks are the demo stacks seeded into a fresh garden so the
// browsing views have content before the user saves anything.
var PresetStacks = []StackDraft{
	{
		Title:         "Summer Beach Day",
		Description:   "A perfect day at the beach with friends, building sandcastles and enjoying the warm sun.",
		Emoji:         "🏖️",
		StartDate:     "2025-07-15",
		VagueTime:     "Last summer",
		Categories:    []string{"friends", "nature"},
		CustomEmotion: "happy",
		Tags:          "beach, summer, friends, fun",
		MediaFiles: []MediaFile{
			{Name: "beach-photo-1.jpg", Type: "image/jpeg", Size: 2450000},
			{Name: "beach-photo-2.jpg", Type: "image/jpeg", Size: 2180000},
		},
	},
	{
		Title:         "Family Birthday Celebration",
		Description:   "Celebrating grandma's 80th birthday with the whole family gathered together.",
		Emoji:         "🎂",
		StartDate:     "2025-06-02",
		VagueTime:     "A few months ago",
		Categories:    []string{"family", "celebration"},
		CustomEmotion: "grateful",
		Tags:          "birthday, family, grandma, celebration",
		MediaFiles: []MediaFile{
			{Name: "birthday-cake.jpg", Type: "image/jpeg", Size: 1980000},
		},
	},
	{
		Title:         "Mountain Hiking Adventure",
		Description:   "Reaching the summit after a long climb, with the whole valley spread out below.",
		Emoji:         "🏔️",
		StartDate:     "2025-05-20",
		VagueTime:     "Last spring",
		Categories:    []string{"nature", "adventure"},
		CustomEmotion: "accomplished",
		Tags:          "hiking, mountain, summit, adventure",
		MediaFiles: []MediaFile{
			{Name: "summit-view.jpg", Type: "image/jpeg", Size: 3120000},
		},
	},
	{
		Title:         "Anniversary Dinner",
		Description:   "A quiet candlelit dinner at our favorite restaurant, five years together.",
		Emoji:         "❤️",
		StartDate:     "2025-04-12",
		VagueTime:     "This spring",
		Categories:    []string{"love", "celebration"},
		CustomEmotion: "loved",
		Tags:          "anniversary, dinner, love",
	},
	{
		Title:         "Work Project Launch",
		Description:   "The team shipping the project we had worked on for months, and the small party after.",
		Emoji:         "🚀",
		StartDate:     "2025-03-28",
		VagueTime:     "Earlier this year",
		Categories:    []string{"work", "achievement"},
		CustomEmotion: "proud",
		Tags:          "work, launch, team, milestone",
	},
	{
		Title:         "Weekend Road Trip",
		Description:   "An unplanned drive down the coast with old friends and too many snacks.",
		Emoji:         "🚗",
		StartDate:     "2025-02-15",
		VagueTime:     "Last winter",
		Categories:    []string{"friends", "travel"},
		CustomEmotion: "free",
		Tags:          "road trip, coast, friends, spontaneous",
	},
	{
		Title:         "Art Gallery Opening",
		Description:   "Seeing my sister's paintings hung in a real gallery for the first time.",
		Emoji:         "🖼️",
		StartDate:     "2025-01-10",
		VagueTime:     "Start of the year",
		Categories:    []string{"family", "art"},
		CustomEmotion: "inspired",
		Tags:          "art, gallery, sister, opening",
	},
}

func isPresetTitle(title string) bool {
	for _, p := range PresetStacks {
		if p.Title == title {
			return true
		}
	}
	return false
}
