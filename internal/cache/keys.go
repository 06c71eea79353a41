package cache

import (
	"strconv"
	"strings"
)

// EventsListKey tags a snapshot with everything that shaped the upstream
// request. A superseded filter state therefore maps to a different key and
// can never overwrite or answer for the current one.
func EventsListKey(page, pageSize int, categoryID, search, dateFrom, dateTo string, priceMin, priceMax *float64, isPublished *bool) string {
	var b strings.Builder

	b.WriteString("events:list:v1")
	b.WriteString(":page=" + strconv.Itoa(page))
	b.WriteString(":size=" + strconv.Itoa(pageSize))
	b.WriteString(":cat=" + strings.ToLower(strings.TrimSpace(categoryID)))
	b.WriteString(":q=" + strings.ToLower(strings.TrimSpace(search)))
	b.WriteString(":from=" + dateFrom)
	b.WriteString(":to=" + dateTo)
	b.WriteString(":pmin=" + floatOrEmpty(priceMin))
	b.WriteString(":pmax=" + floatOrEmpty(priceMax))
	b.WriteString(":pub=" + boolOrEmpty(isPublished))

	return b.String()
}

func EventKey(id string) string {
	return "events:one:v1:" + id
}

func CategoriesKey() string {
	return "categories:v1"
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func boolOrEmpty(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
