package blogs

// DefaultCategory is used for posts that carry no category.
const DefaultCategory = "Other"

// Categories is the fixed set of post categories, in display order.
var Categories = []string{
	"Technology",
	"Lifestyle",
	"Travel",
	"Food",
	"Business",
	"Health",
	"Education",
	"Entertainment",
	"Other",
}

var categoryEmoji = map[string]string{
	"Technology":    "💻",
	"Lifestyle":     "🌟",
	"Travel":        "✈️",
	"Food":          "🍕",
	"Business":      "💼",
	"Health":        "🏥",
	"Education":     "📚",
	"Entertainment": "🎬",
	"Other":         "📝",
}

// CategoryEmoji returns the display glyph for a category. Unknown categories
// share the one used for DefaultCategory.
func CategoryEmoji(category string) string {
	if e, ok := categoryEmoji[category]; ok {
		return e
	}
	return categoryEmoji[DefaultCategory]
}

// IsCategory reports whether c is one of Categories.
func IsCategory(c string) bool {
	_, ok := categoryEmoji[c]
	return ok
}

// CategoryOrDefault returns c, or DefaultCategory when c is empty.
func CategoryOrDefault(c string) string {
	if c == "" {
		return DefaultCategory
	}
	return c
}
