package comps

import "encoding/json"

// Details layout: { "Details": { "PropertySummary": {...}, "PropertyDetails": { "PropertyBasics": {...} },
// "PropertyValuation": {...}, "ComparablePropertyListings": { "Comparables": [...] } } }

type detailsSummary struct {
	Address      flexString   `json:"Address"`
	Street       flexString   `json:"StreetAddress"`
	City         flexString   `json:"City"`
	State        flexString   `json:"State"`
	Zip          flexString   `json:"Zip"`
	ZipCode      flexString   `json:"ZipCode"`
	Bedrooms     flexNumber   `json:"Bedrooms"`
	FullBaths    flexNumber   `json:"FullBaths"`
	TotalBaths   flexNumber   `json:"TotalBaths"`
	YearBuilt    flexNumber   `json:"YearBuilt"`
	BuildingSqft flexNumber   `json:"BuildingSqft"`
	LivingSqft   flexNumber   `json:"LivingSqft"`
	LotSqft      flexNumber   `json:"LotSqft"`
	LotSize      flexNumber   `json:"LotSize"`
	Pool         flexPresence `json:"Pool"`
}

type detailsBasics struct {
	YearBuiltActual flexNumber   `json:"YearBuiltActual"`
	Bedrooms        flexNumber   `json:"Bedrooms"`
	Baths           flexNumber   `json:"Baths"`
	BuildingSqft    flexNumber   `json:"BuildingSqft"`
	LotSqft         flexNumber   `json:"LotSqft"`
	Pool            flexPresence `json:"Pool"`
}

type detailsValuation struct {
	EstimatedValue     flexNumber `json:"EstimatedValue"`
	ConfidenceScore    flexNumber `json:"ConfidenceScore"`
	ValuationRangeLow  flexNumber `json:"ValuationRangeLow"`
	ValuationRangeHigh flexNumber `json:"ValuationRangeHigh"`
	YearBuilt          flexNumber `json:"YearBuilt"`
}

type detailsComparable struct {
	Address      flexString `json:"Address"`
	City         flexString `json:"City"`
	State        flexString `json:"State"`
	Zip          flexString `json:"Zip"`
	Price        flexNumber `json:"Price"`
	Bedrooms     flexNumber `json:"Bedrooms"`
	Baths        flexNumber `json:"Baths"`
	BuildingSqft flexNumber `json:"BuildingSqft"`
	YearBuilt    flexNumber `json:"YearBuilt"`
	Distance     flexNumber `json:"Distance"`
	DaysOnMarket flexNumber `json:"DaysOnMarket"`
	SaleDate     flexString `json:"SaleDate"`
	StatusDate   flexString `json:"StatusDate"`
}

type detailsPayload struct {
	Details struct {
		PropertySummary detailsSummary `json:"PropertySummary"`
		PropertyDetails struct {
			PropertyBasics detailsBasics `json:"PropertyBasics"`
		} `json:"PropertyDetails"`
		PropertyValuation          detailsValuation `json:"PropertyValuation"`
		ComparablePropertyListings struct {
			Comparables []json.RawMessage `json:"Comparables"`
		} `json:"ComparablePropertyListings"`
	} `json:"Details"`
}

func mapDetails(raw []byte, lim Limits) Normalized {
	var p detailsPayload
	decodeLenient(raw, &p)

	d := p.Details
	sum, basics, val := d.PropertySummary, d.PropertyDetails.PropertyBasics, d.PropertyValuation

	n := empty(ShapeDetails)
	n.Property = PropertyRecord{
		Address:   firstString(sum.Address, sum.Street).field(),
		City:      sum.City.field(),
		State:     sum.State.field(),
		Zip:       firstString(sum.Zip, sum.ZipCode).field(),
		Beds:      firstNumber(sum.Bedrooms, basics.Bedrooms).float(),
		Baths:     firstNumber(sum.FullBaths, sum.TotalBaths, basics.Baths).float(),
		YearBuilt: firstNumber(basics.YearBuiltActual, sum.YearBuilt, val.YearBuilt).integer(),
		Sqft:      firstNumber(sum.BuildingSqft, sum.LivingSqft, basics.BuildingSqft).float(),
		LotSize:   firstNumber(sum.LotSqft, sum.LotSize, basics.LotSqft).float(),
		HasPool:   firstPresence(sum.Pool, basics.Pool).field(),
	}
	n.Valuation = ValuationEstimate{
		EstimatedValue:  val.EstimatedValue.decimal(),
		RangeLow:        val.ValuationRangeLow.decimal(),
		RangeHigh:       val.ValuationRangeHigh.decimal(),
		ConfidenceScore: val.ConfidenceScore.float(),
	}
	n.Sold = comparables(d.ComparablePropertyListings.Comparables, lim.Sold, Sold, detailsComparableRecord)
	return n
}

func detailsComparableRecord(raw json.RawMessage, cat Category) ComparableRecord {
	var c detailsComparable
	decodeLenient(raw, &c)
	return ComparableRecord{
		Category:     cat,
		Address:      c.Address.field(),
		City:         c.City.field(),
		State:        c.State.field(),
		Zip:          c.Zip.field(),
		Price:        c.Price.decimal(),
		Beds:         c.Bedrooms.float(),
		Baths:        c.Baths.float(),
		Sqft:         c.BuildingSqft.float(),
		YearBuilt:    c.YearBuilt.integer(),
		Distance:     c.Distance.float(),
		DaysOnMarket: c.DaysOnMarket.integer(),
		StatusDate:   firstString(c.StatusDate, c.SaleDate).field(),
	}
}
