// Package gorm provides GORM-based repository implementations
package gorm

// RecipeModel is the GORM model for the recipes table
type RecipeModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false"`
	Title       string `gorm:"not null"`
	Category    string `gorm:"not null"`
	Preparation string `gorm:"not null"`

	Ingredients []IngredientModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for RecipeModel
func (RecipeModel) TableName() string {
	return "recipes"
}

// IngredientModel is one ingredient_amount row. IngredientKey holds the
// normalized text the matcher compares against.
type IngredientModel struct {
	ID               int64  `gorm:"primaryKey"`
	RecipeID         int64  `gorm:"not null;index"`
	Position         int    `gorm:"not null"`
	IngredientAmount string `gorm:"column:ingredient_amount;size:200;not null"`
	IngredientKey    string `gorm:"column:ingredient_key;not null"`
}

// TableName specifies the table name for IngredientModel
func (IngredientModel) TableName() string {
	return "ingredients"
}
