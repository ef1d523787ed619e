package transaction

import "strings"

// Built-in categories
const (
	CategoryFood          = "food"
	CategoryGroceries     = "groceries"
	CategoryTransport     = "transport"
	CategoryUtilities     = "utilities"
	CategoryRent          = "rent"
	CategoryShopping      = "shopping"
	CategoryHealth        = "health"
	CategoryEducation     = "education"
	CategoryEntertainment = "entertainment"
	CategorySalary        = "salary"
	CategoryOther         = "other"
)

// categoryKeywords maps note keywords to a built-in category. Matching is
// case-insensitive and first-hit wins in map iteration order per keyword
// list, so a keyword must belong to exactly one category.
var categoryKeywords = map[string][]string{
	CategoryFood:          {"restaurant", "lunch", "dinner", "breakfast", "cafe", "coffee", "foodpanda", "khabar"},
	CategoryGroceries:     {"grocery", "groceries", "bazar", "market", "shwapno", "meena"},
	CategoryTransport:     {"uber", "pathao", "bus", "train", "rickshaw", "cng", "fuel", "petrol"},
	CategoryUtilities:     {"electricity", "gas bill", "water bill", "internet", "wifi", "recharge", "desco"},
	CategoryRent:          {"rent", "bhara", "landlord"},
	CategoryShopping:      {"daraz", "shopping", "clothes", "shoes"},
	CategoryHealth:        {"hospital", "doctor", "pharmacy", "medicine", "clinic"},
	CategoryEducation:     {"tuition", "school", "college", "books", "course"},
	CategoryEntertainment: {"movie", "netflix", "spotify", "game", "cinema"},
	CategorySalary:        {"salary", "payroll", "beton"},
}

// InferCategory guesses a category from a free-form note. Falls back to
// "other" when nothing matches.
func InferCategory(note string) string {
	if note == "" {
		return CategoryOther
	}
	lower := strings.ToLower(note)
	for category, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return CategoryOther
}
