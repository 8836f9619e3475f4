package vocab

import "sync"

// CuratedName is the name of the curated semantic vocabulary.
const CuratedName = "curated"

var curatedTags = []string{
	"museum", "art", "monument", "historical", "church", "attraction", "viewpoint",
	"park", "lake", "river", "mountain", "beach", "tropical",
	"hiking", "surfing", "ski", "cycling", "swimming",
	"restaurant", "cafe", "vegan", "local_food",
	"shopping", "mall", "market",
	"wifi", "accessible", "family_friendly",
	"cold", "warm",
}

var curatedWeights = map[string]float64{
	"museum":          1.2,
	"art":             1.1,
	"monument":        1.1,
	"historical":      1.1,
	"church":          0.9,
	"attraction":      1.1,
	"viewpoint":       0.9,
	"park":            1.0,
	"lake":            1.1,
	"river":           0.8,
	"mountain":        1.3,
	"beach":           1.4,
	"tropical":        1.3,
	"hiking":          1.5,
	"surfing":         1.4,
	"ski":             1.5,
	"cycling":         1.2,
	"swimming":        1.0,
	"restaurant":      1.0,
	"cafe":            0.8,
	"vegan":           0.9,
	"local_food":      1.1,
	"shopping":        0.6,
	"mall":            0.5,
	"market":          0.8,
	"wifi":            0.3,
	"accessible":      0.3,
	"family_friendly": 0.5,
	"cold":            0.2,
	"warm":            0.2,
}

// curatedAliases maps place-provider categories onto curated tags.
var curatedAliases = map[string]string{
	"entertainment.museum":             "museum",
	"tourism.museum":                   "museum",
	"entertainment.culture.gallery":    "art",
	"tourism.attraction.artwork":       "art",
	"tourism.sights.memorial.monument": "monument",
	"heritage":                         "historical",
	"heritage.unesco":                  "historical",
	"building.historic":                "historical",
	"tourism.sights.castle":            "historical",
	"tourism.sights.ruines":            "historical",
	"tourism.attraction":               "attraction",
	"tourism.sights":                   "viewpoint",
	"tourism.attraction.viewpoint":     "viewpoint",
	"religion.place_of_worship":        "church",
	"leisure.park":                     "park",
	"natural.park":                     "park",
	"natural.lake":                     "lake",
	"natural.river":                    "river",
	"natural.mountain":                 "mountain",
	"natural.mountain.peak":            "mountain",
	"beach.beach_resort":               "beach",
	"natural.beach":                    "beach",
	"sport.hiking":                     "hiking",
	"sport.ski":                        "ski",
	"sport.surf":                       "surfing",
	"rental.bicycle":                   "cycling",
	"sport.swimming_pool":              "swimming",
	"catering.restaurant":              "restaurant",
	"catering.fast_food":               "restaurant",
	"catering.cafe":                    "cafe",
	"catering.cafe.coffee":             "cafe",
	"vegetarian":                       "vegan",
	"catering.restaurant.regional":     "local_food",
	"commercial.shopping_mall":         "mall",
	"shop":                             "shopping",
	"commercial":                       "shopping",
	"marketplace":                      "market",
	"commercial.marketplace":           "market",
	"internet_access.free":             "wifi",
	"wheelchair.yes":                   "accessible",
}

// Curated returns the process-wide curated vocabulary.
var Curated = sync.OnceValue(func() *Vocabulary {
	v, err := New(CuratedName, curatedTags, WithWeights(curatedWeights), WithAliases(curatedAliases))
	if err != nil {
		panic(err)
	}
	return v
})
