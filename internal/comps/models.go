package comps

import "github.com/shopspring/decimal"

// Shape identifies which payload layout a raw response used.
type Shape string

const (
	ShapeMLS          Shape = "mls"     // root mlsData + searchLists
	ShapeDetails      Shape = "details" // root Details.{PropertySummary,...}
	ShapeUnrecognized Shape = "unrecognized"
)

// Category of a comparable listing.
type Category string

const (
	Sold    Category = "sold"
	Pending Category = "pending"
	Active  Category = "active"
)

// PropertyRecord is the subject property.
type PropertyRecord struct {
	Address   Field[string]  `json:"address"`
	City      Field[string]  `json:"city"`
	State     Field[string]  `json:"state"`
	Zip       Field[string]  `json:"zip"`
	Beds      Field[float64] `json:"beds"`
	Baths     Field[float64] `json:"baths"`
	YearBuilt Field[int]     `json:"year_built"`
	Sqft      Field[float64] `json:"sqft"`
	LotSize   Field[float64] `json:"lot_size"`
	HasPool   Field[bool]    `json:"has_pool"`
}

// ComparableRecord is one nearby sold, pending or active listing.
type ComparableRecord struct {
	Category     Category            `json:"category"`
	Address      Field[string]       `json:"address"`
	City         Field[string]       `json:"city"`
	State        Field[string]       `json:"state"`
	Zip          Field[string]       `json:"zip"`
	Price        decimal.NullDecimal `json:"price"`
	Beds         Field[float64]      `json:"beds"`
	Baths        Field[float64]      `json:"baths"`
	Sqft         Field[float64]      `json:"sqft"`
	YearBuilt    Field[int]          `json:"year_built"`
	Distance     Field[float64]      `json:"distance_miles"`
	DaysOnMarket Field[int]          `json:"days_on_market"`
	StatusDate   Field[string]       `json:"status_date"`
}

// PositivePrice returns the price when it is present and above zero.
func (c ComparableRecord) PositivePrice() (decimal.Decimal, bool) {
	if !c.Price.Valid || !c.Price.Decimal.IsPositive() {
		return decimal.Decimal{}, false
	}
	return c.Price.Decimal, true
}

// ValuationEstimate is the provider's own estimate for the subject, when
// the endpoint returns one.
type ValuationEstimate struct {
	EstimatedValue  decimal.NullDecimal `json:"estimated_value"`
	RangeLow        decimal.NullDecimal `json:"range_low"`
	RangeHigh       decimal.NullDecimal `json:"range_high"`
	ConfidenceScore Field[float64]      `json:"confidence_score"`
}

// Normalized is the flattened form of one raw API response.
type Normalized struct {
	Shape     Shape              `json:"shape"`
	Property  PropertyRecord     `json:"property"`
	Valuation ValuationEstimate  `json:"valuation"`
	Sold      []ComparableRecord `json:"sold"`
	Pending   []ComparableRecord `json:"pending"`
	Active    []ComparableRecord `json:"active"`

	// EnvelopeError holds the "error" text of an unrecognized payload that
	// looked like a provider error envelope.
	EnvelopeError string `json:"envelope_error,omitempty"`
}

// CompCount is the number of comparables across all categories.
func (n Normalized) CompCount() int { return len(n.Sold) + len(n.Pending) + len(n.Active) }

// MarketSummary holds price statistics over a comparable set. Price fields
// are invalid when Count is zero; the similar pair is invalid unless at
// least one priced comp matched the subject's beds and baths.
type MarketSummary struct {
	Count           int                 `json:"count"`
	AvgPrice        decimal.NullDecimal `json:"avg_price"`
	MinPrice        decimal.NullDecimal `json:"min_price"`
	MaxPrice        decimal.NullDecimal `json:"max_price"`
	AvgSimilarPrice decimal.NullDecimal `json:"avg_similar_price"`
	SimilarCount    Field[int]          `json:"similar_count"`
}

// Report is a MarketSummary per comparable category.
type Report struct {
	Sold    MarketSummary `json:"sold"`
	Pending MarketSummary `json:"pending"`
	Active  MarketSummary `json:"active"`
}

// Limits caps how many comparables are kept per category.
type Limits struct {
	Sold    int
	Pending int
	Active  int
}

// DefaultLimits is the display-volume policy used unless configured otherwise.
var DefaultLimits = Limits{Sold: 10, Pending: 5, Active: 10}

func (l Limits) orDefault() Limits {
	if l.Sold <= 0 {
		l.Sold = DefaultLimits.Sold
	}
	if l.Pending <= 0 {
		l.Pending = DefaultLimits.Pending
	}
	if l.Active <= 0 {
		l.Active = DefaultLimits.Active
	}
	return l
}
