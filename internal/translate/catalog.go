// Package translate holds the cat-vocalization catalog and the simulated analysis engine.
package translate

type Mood string

const (
	MoodHappy      Mood = "happy"
	MoodExcited    Mood = "excited"
	MoodRequesting Mood = "requesting"
	MoodDemanding  Mood = "demanding"
	MoodAnnoyed    Mood = "annoyed"
	MoodDistressed Mood = "distressed"
	MoodContent    Mood = "content"
	MoodFriendly   Mood = "friendly"
	MoodFrustrated Mood = "frustrated"
	MoodDefensive  Mood = "defensive"
)

// Entry is one immutable catalog record.
type Entry struct {
	Sound   string `json:"sound" yaml:"sound"`
	Meaning string `json:"meaning" yaml:"meaning"`
	Mood    Mood   `json:"mood" yaml:"mood"`
}

var catalog = [...]Entry{
	{Sound: "Short meow", Meaning: "Hello! Nice to see you!", Mood: MoodHappy},
	{Sound: "Multiple meows", Meaning: "I'm so excited to see you!", Mood: MoodExcited},
	{Sound: "Mid-pitch meow", Meaning: "I'd like something, please", Mood: MoodRequesting},
	{Sound: "Long, drawn-out meow", Meaning: "I really need your attention now!", Mood: MoodDemanding},
	{Sound: "Low-pitch meow", Meaning: "I'm not happy about something", Mood: MoodAnnoyed},
	{Sound: "High-pitch meow", Meaning: "That hurt! or I'm startled", Mood: MoodDistressed},
	{Sound: "Purring", Meaning: "I'm content and comfortable", Mood: MoodContent},
	{Sound: "Trill/Chirrup", Meaning: "Happy greeting! Follow me!", Mood: MoodFriendly},
	{Sound: "Chattering", Meaning: "I see prey but can't reach it!", Mood: MoodFrustrated},
	{Sound: "Hissing", Meaning: "Back off! I feel threatened", Mood: MoodDefensive},
}

// CatalogSize is the fixed number of catalog entries.
const CatalogSize = len(catalog)

// Catalog returns a copy of the ordered catalog.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog[:])
	return out
}

// InCatalog reports whether e is one of the catalog entries.
func InCatalog(e Entry) bool {
	for _, candidate := range catalog {
		if candidate == e {
			return true
		}
	}
	return false
}

// Emoji returns the presentation glyph for a mood.
func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😊"
	case MoodExcited:
		return "🎉"
	case MoodRequesting:
		return "🙏"
	case MoodDemanding:
		return "😤"
	case MoodAnnoyed, MoodFrustrated:
		return "😾"
	case MoodDistressed:
		return "😿"
	case MoodContent:
		return "😌"
	case MoodFriendly:
		return "💕"
	case MoodDefensive:
		return "🙀"
	default:
		return "🐱"
	}
}

// String renders the entry for terminal and notification output.
func (e Entry) String() string {
	return e.Mood.Emoji() + " " + e.Sound + ": \"" + e.Meaning + "\" (" + string(e.Mood) + ")"
}
