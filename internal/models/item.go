package models

import (
	"regexp"
	"strings"
	"unicode"
)

// InventoryItem is one stored item in a bin of the tool crib.
type InventoryItem struct {
	ID       int64  `json:"id" yaml:"id" gorm:"primaryKey;autoIncrement"`
	Location string `json:"location" yaml:"location" gorm:"not null;index"`
	Item     string `json:"item" yaml:"item" gorm:"column:item;not null"`
	Quantity int64  `json:"quantity" yaml:"quantity" gorm:"not null;default:0"`
	Notes    string `json:"notes" yaml:"notes"`
}

// TableName keeps the collection name shared by every store driver.
func (InventoryItem) TableName() string { return TableInventory }

var locationPattern = regexp.MustCompile(`^\d{1,3}[A-Z]$`)

// NormalizeLocation trims, uppercases and drops every non-alphanumeric rune.
func NormalizeLocation(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if r < unicode.MaxASCII && (unicode.IsDigit(r) || unicode.IsLetter(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidLocation reports whether loc is 1-3 digits followed by one uppercase letter.
func ValidLocation(loc string) bool {
	return locationPattern.MatchString(loc)
}

// Cabinet returns the leading digits of a location ("105A" -> "105").
func Cabinet(loc string) string {
	i := 0
	for i < len(loc) && loc[i] >= '0' && loc[i] <= '9' {
		i++
	}
	return loc[:i]
}

// Drawer returns the trailing letter of a location, or "" when there is none.
func Drawer(loc string) string {
	if loc == "" {
		return ""
	}
	last := loc[len(loc)-1]
	if last >= 'A' && last <= 'Z' {
		return string(last)
	}
	return ""
}
