package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Variant is a purchasable configuration of a product with its own
// price and stock. VariantID is unique within its product.
type Variant struct {
	VariantID       string   `bson:"variant_id" json:"variant_id"`
	Material        string   `bson:"material" json:"material"`
	Purity          string   `bson:"purity,omitempty" json:"purity,omitempty"`
	Sizes           []string `bson:"sizes,omitempty" json:"sizes,omitempty"`
	Price           float64  `bson:"price" json:"price"`
	Stock           int      `bson:"stock" json:"stock"`
	Weight          float64  `bson:"weight,omitempty" json:"weight,omitempty"`
	WeightUnit      string   `bson:"weight_unit,omitempty" json:"weight_unit,omitempty"`
	HSCode          string   `bson:"hs_code,omitempty" json:"hs_code,omitempty"`
	CountryOfOrigin string   `bson:"country_of_origin,omitempty" json:"country_of_origin,omitempty"`
}

// Product represents a catalog entry. Pricing and stock live on the
// variants; the product itself only carries presentation data.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category" json:"category"` // e.g. "rings", "necklaces"
	MainImage   string             `bson:"main_image,omitempty" json:"main_image,omitempty"`
	Images      []string           `bson:"images,omitempty" json:"images,omitempty"`
	Variants    []Variant          `bson:"variants" json:"variants"`
}

// FindVariant returns the variant with the given id, or nil.
func (p *Product) FindVariant(variantID string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].VariantID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}
