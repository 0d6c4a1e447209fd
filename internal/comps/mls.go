package comps

import "encoding/json"

// MLS layout: { "mlsData": {...}, "searchLists": { "Sold": [...], "pending": [...], "open": [...] } }

type mlsSubject struct {
	Address        flexString   `json:"address"`
	City           flexString   `json:"city"`
	State          flexString   `json:"state"`
	Zip            flexString   `json:"zip"`
	Beds           flexNumber   `json:"beds"`
	Baths          flexNumber   `json:"baths"`
	YearBuilt      flexNumber   `json:"yearBuilt"`
	Size           flexNumber   `json:"size"`
	LotSize        flexNumber   `json:"lotSize"`
	Pool           flexPresence `json:"pool"`
	PredictedPrice flexNumber   `json:"predictedPrice"`
}

type mlsListing struct {
	Address      flexString `json:"address"`
	City         flexString `json:"city"`
	State        flexString `json:"state"`
	Zip          flexString `json:"zip"`
	Price        flexNumber `json:"price"`
	Beds         flexNumber `json:"beds"`
	Baths        flexNumber `json:"baths"`
	Size         flexNumber `json:"size"`
	YearBuilt    flexNumber `json:"yearBuilt"`
	Distance     flexNumber `json:"distance"`
	DaysOnMarket flexNumber `json:"daysOnMarket"`
	StatusDate   flexString `json:"statusDate"`
}

type mlsPayload struct {
	MLSData     mlsSubject `json:"mlsData"`
	SearchLists struct {
		Sold      []json.RawMessage `json:"Sold"`
		SoldLower []json.RawMessage `json:"sold"`
		Pending   []json.RawMessage `json:"pending"`
		Open      []json.RawMessage `json:"open"`
	} `json:"searchLists"`
}

func mapMLS(raw []byte, lim Limits) Normalized {
	var p mlsPayload
	decodeLenient(raw, &p)

	n := empty(ShapeMLS)
	s := p.MLSData
	n.Property = PropertyRecord{
		Address:   s.Address.field(),
		City:      s.City.field(),
		State:     s.State.field(),
		Zip:       s.Zip.field(),
		Beds:      s.Beds.float(),
		Baths:     s.Baths.float(),
		YearBuilt: s.YearBuilt.integer(),
		Sqft:      s.Size.float(),
		LotSize:   s.LotSize.float(),
		HasPool:   s.Pool.field(),
	}
	n.Valuation.EstimatedValue = s.PredictedPrice.decimal()

	sold := p.SearchLists.Sold
	if sold == nil {
		sold = p.SearchLists.SoldLower
	}
	n.Sold = comparables(sold, lim.Sold, Sold, mlsComparable)
	n.Pending = comparables(p.SearchLists.Pending, lim.Pending, Pending, mlsComparable)
	n.Active = comparables(p.SearchLists.Open, lim.Active, Active, mlsComparable)
	return n
}

func mlsComparable(raw json.RawMessage, cat Category) ComparableRecord {
	var l mlsListing
	decodeLenient(raw, &l)
	return ComparableRecord{
		Category:     cat,
		Address:      l.Address.field(),
		City:         l.City.field(),
		State:        l.State.field(),
		Zip:          l.Zip.field(),
		Price:        l.Price.decimal(),
		Beds:         l.Beds.float(),
		Baths:        l.Baths.float(),
		Sqft:         l.Size.float(),
		YearBuilt:    l.YearBuilt.integer(),
		Distance:     l.Distance.float(),
		DaysOnMarket: l.DaysOnMarket.integer(),
		StatusDate:   l.StatusDate.field(),
	}
}
