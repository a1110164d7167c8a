package model

// Category is one of the five conversation buckets the model assigns each turn.
type Category string

const (
	CategorySourcing     Category = "Products & Sourcing"
	CategoryLogistics    Category = "Logistics & Shipping"
	CategoryPayments     Category = "Payments & Finance"
	CategoryGuarantees   Category = "Guarantees & Quality"
	CategoryRelationship Category = "Relationship & Psychology"
)

// DefaultCategory is used whenever the model omits or garbles the category.
const DefaultCategory = CategoryRelationship

// ParseCategory normalises a raw category string. Unknown values fall back to
// DefaultCategory; the model output is best-effort and never trusted.
func ParseCategory(v string) Category {
	switch Category(v) {
	case CategorySourcing, CategoryLogistics, CategoryPayments, CategoryGuarantees, CategoryRelationship:
		return Category(v)
	default:
		return DefaultCategory
	}
}

// String returns the wire representation of the category.
func (c Category) String() string {
	return string(c)
}
