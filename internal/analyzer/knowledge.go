package analyzer

// DefaultAIBots is the canonical list of AI crawlers checked against
// robots.txt. Overridable through configuration.
var DefaultAIBots = []string{
	"GPTBot",
	"Google-Extended",
	"ChatGPT-User",
	"anthropic-ai",
	"Claude-Web",
	"PerplexityBot",
	"CCBot",
}

// mainEntityTypes are the schema types that can serve as a page's primary
// entity, in detection priority order.
var mainEntityTypes = []string{
	"Article",
	"BlogPosting",
	"NewsArticle",
	"Product",
	"LocalBusiness",
	"Service",
}

// requiredFields lists the properties a schema type must carry to earn full
// main-entity credit.
var requiredFields = map[string][]string{
	"Article":        {"headline", "author"},
	"BlogPosting":    {"headline", "author"},
	"NewsArticle":    {"headline", "author"},
	"Product":        {"name", "description"},
	"LocalBusiness":  {"name", "address"},
	"Service":        {"name", "description"},
	"Organization":   {"name"},
	"WebSite":        {"name", "url"},
	"Recipe":         {"name", "recipeIngredient", "recipeInstructions"},
	"Event":          {"name", "startDate", "location"},
	"FAQPage":        {"mainEntity"},
	"BreadcrumbList": {"itemListElement"},
	"Person":         {"name"},
}

// enrichmentWeights score supplemental schemas; the card is capped at 20.
var enrichmentWeights = map[string]int{
	"FAQPage":         8,
	"Review":          4,
	"AggregateRating": 4,
	"Recipe":          6,
	"Event":           6,
	"Person":          4,
}

const enrichmentCap = 20

// ctaBlacklist holds accessible names that carry no meaning out of context.
var ctaBlacklist = map[string]bool{
	"click here": true,
	"here":       true,
	"more":       true,
	"read more":  true,
	"link":       true,
	"this":       true,
	"learn more": true,
}

// navDivPatterns match id/class tokens that mark a <div> as a de facto
// navigation region.
var navDivPatterns = []string{"nav", "navigation", "main-menu", "nav-menu", "primary-nav"}

// sidebarDivPatterns match id/class tokens that mark a <div> as a de facto
// sidebar region.
var sidebarDivPatterns = []string{"sidebar", "aside", "side-content"}
