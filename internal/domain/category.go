package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Category is a taxi trip record type. Each category has its own remote
// path prefix, local data directory, and destination table.
type Category string

// Supported categories. CategoryFHV is the short form of for-hire-vehicle.
const (
	CategoryYellow Category = "yellow"
	CategoryGreen  Category = "green"
	CategoryFHV    Category = "fhv"
)

// AllCategories returns every category in processing order.
func AllCategories() []Category {
	return []Category{CategoryYellow, CategoryGreen, CategoryFHV}
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryYellow, CategoryGreen, CategoryFHV:
		return true
	}
	return false
}

// TableName returns the unqualified destination table, e.g. "fhv_tripdata".
func (c Category) TableName() string {
	return string(c) + "_tripdata"
}

// Dir returns the category's subdirectory under dataDir.
func (c Category) Dir(dataDir string) string {
	return filepath.Join(dataDir, string(c))
}

// ParseCategory accepts a category name, case-insensitively. The long form
// "for-hire-vehicle" maps to CategoryFHV.
func ParseCategory(s string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "for-hire-vehicle" {
		return CategoryFHV, nil
	}
	c := Category(v)
	if !c.Valid() {
		return "", ErrValidation("unknown taxi category %q: use yellow, green, or fhv", s)
	}
	return c, nil
}

// Period is a single (year, month) unit of data.
type Period struct {
	Year  int
	Month int
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// PeriodsFor expands years into every month 1..12, year by year.
func PeriodsFor(years []int) []Period {
	periods := make([]Period, 0, len(years)*12)
	for _, y := range years {
		for m := 1; m <= 12; m++ {
			periods = append(periods, Period{Year: y, Month: m})
		}
	}
	return periods
}

func baseName(c Category, p Period) string {
	return fmt.Sprintf("%s_tripdata_%s", c, p)
}

// SourceFileName is the compressed CSV name, both remote and local.
func SourceFileName(c Category, p Period) string {
	return baseName(c, p) + ".csv.gz"
}

// ParquetFileName is the name of the permanent columnar file for a period.
func ParquetFileName(c Category, p Period) string {
	return baseName(c, p) + ".parquet"
}

// SourceURL builds the remote download URL for a period.
func SourceURL(baseURL string, c Category, p Period) string {
	return strings.TrimRight(baseURL, "/") + "/" + string(c) + "/" + SourceFileName(c, p)
}
