package marketcap

// Category is a named market-cap tier.
type Category string

// Recognized categories. Cutoffs are USD millions.
const (
	CategoryMega  Category = "mega"
	CategoryLarge Category = "large"
	CategoryMid   Category = "mid"
)

var categoryThresholds = map[Category]float64{
	CategoryMega:  200e3, // 200B
	CategoryLarge: 10e3,  // 10B
	CategoryMid:   2e3,   // 2B
}

// Categories returns the recognized labels, largest cutoff first.
func Categories() []Category {
	return []Category{CategoryMega, CategoryLarge, CategoryMid}
}

// Classify maps a category label to its USD cutoff in millions.
func Classify(category string) (float64, error) {
	thres, ok := categoryThresholds[Category(category)]
	if !ok {
		return 0, &InvalidCategoryError{Category: category}
	}
	return thres, nil
}
