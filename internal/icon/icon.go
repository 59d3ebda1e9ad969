// Package icon maps symbolic progress-icon keys to the closed set of
// glyphs the clients know how to render.
package icon

// Glyph identifies one renderable icon.
type Glyph string

const (
	GlyphBirthday    Glyph = "FaBirthdayCake"
	GlyphChristmas   Glyph = "FaSnowman"
	GlyphGift        Glyph = "FaGift"
	GlyphHourglass   Glyph = "FaHourglassHalf"
	GlyphLove        Glyph = "FaHeart"
	GlyphRocket      Glyph = "FaRocket"
	GlyphParty       Glyph = "GiPartyPopper"
	GlyphCelebration Glyph = "MdCelebration"
	GlyphEvent       Glyph = "BiSolidParty"
)

// Resolve is total: unknown or absent keys fall back to the hourglass,
// never an error. Keys and already-resolved glyph names both resolve,
// since older rows stored the glyph name directly.
func Resolve(key string) Glyph {
	switch key {
	case "birthday", string(GlyphBirthday):
		return GlyphBirthday
	case "christmas", string(GlyphChristmas):
		return GlyphChristmas
	case "gift", string(GlyphGift):
		return GlyphGift
	case "hourglass", string(GlyphHourglass):
		return GlyphHourglass
	case "love", string(GlyphLove):
		return GlyphLove
	case "rocket", string(GlyphRocket):
		return GlyphRocket
	case "party", string(GlyphParty):
		return GlyphParty
	case "celebration", string(GlyphCelebration):
		return GlyphCelebration
	case "event", string(GlyphEvent):
		return GlyphEvent
	default:
		return GlyphHourglass
	}
}

// Option is one picker entry for the create/edit forms.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Glyph Glyph  `json:"glyph"`
}

// Options lists the pickable icons in display order.
func Options() []Option {
	return []Option{
		{Key: "birthday", Label: "Cake", Glyph: GlyphBirthday},
		{Key: "party", Label: "Party", Glyph: GlyphParty},
		{Key: "gift", Label: "Gift", Glyph: GlyphGift},
		{Key: "hourglass", Label: "Hourglass", Glyph: GlyphHourglass},
		{Key: "love", Label: "Heart", Glyph: GlyphLove},
		{Key: "rocket", Label: "Rocket", Glyph: GlyphRocket},
		{Key: "celebration", Label: "Celebration", Glyph: GlyphCelebration},
		{Key: "christmas", Label: "Christmas", Glyph: GlyphChristmas},
		{Key: "event", Label: "Event", Glyph: GlyphEvent},
	}
}
