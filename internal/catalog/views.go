package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kalambet/jobportal/internal/auth"
	"github.com/kalambet/jobportal/internal/filter"
)

// View describes one list screen: which collection it shows and which fields
// its search box, dropdowns and sliders act on.
type View struct {
	Name         string    `json:"name"`
	Collection   string    `json:"collection"`
	SearchFields []string  `json:"search_fields"`
	FilterFields []string  `json:"filter_fields,omitempty"`
	RangeFields  []string  `json:"range_fields,omitempty"`
	CountField   string    `json:"count_field,omitempty"`
	Role         auth.Role `json:"role,omitempty"` // empty means public

	// WriteRole may change records of a public view. Defaults to company.
	WriteRole auth.Role `json:"write_role,omitempty"`

	// ContainsFields are free-text boxes: a field filter on one of them
	// matches any value containing the text.
	ContainsFields []string `json:"contains_fields,omitempty"`
}

var views = []View{
	{
		Name:         "jobs",
		Collection:   "jobs",
		SearchFields:   []string{"title", "company", "skills"},
		FilterFields:   []string{"type", "experienceLevel"},
		ContainsFields: []string{"location"},
		CountField:     "type",
	},
	{
		Name:         "postings",
		Collection:   "postings",
		SearchFields: []string{"title", "location"},
		FilterFields: []string{"status", "type"},
		RangeFields:  []string{"applications", "views"},
		CountField:   "status",
	},
	{
		Name:         "applications",
		Collection:   "applications",
		SearchFields: []string{"candidateName", "position"},
		FilterFields: []string{"status", "position"},
		CountField:   "status",
	},
	{
		Name:         "users",
		Collection:   "users",
		SearchFields: []string{"name", "email"},
		FilterFields: []string{"status", "type"},
		CountField:   "type",
		Role:         auth.RoleAdmin,
	},
	{
		Name:         "admin-jobs",
		Collection:   "admin-jobs",
		SearchFields: []string{"title", "company"},
		FilterFields: []string{"status"},
		RangeFields:  []string{"applications", "views"},
		CountField:   "status",
		Role:         auth.RoleAdmin,
	},
	{
		Name:         "companies",
		Collection:   "companies",
		SearchFields: []string{"companyName", "email"},
		FilterFields: []string{"status"},
		CountField:   "status",
		Role:         auth.RoleAdmin,
	},
	{
		Name:         "prospects",
		Collection:   "prospects",
		SearchFields: []string{"name", "email"},
		FilterFields: []string{"status", "currentSubscription", "interestedIn"},
		RangeFields:  []string{"leadScore"},
		CountField:   "status",
		Role:         auth.RoleSales,
	},
	{
		Name:         "courses",
		Collection:   "courses",
		SearchFields: []string{"title", "skills"},
		FilterFields: []string{"category", "level"},
		RangeFields:  []string{"price", "rating"},
		CountField:   "category",
	},
	{
		Name:         "blogs",
		Collection:   "blogs",
		SearchFields: []string{"title", "category"},
		FilterFields: []string{"category", "status"},
		RangeFields:  []string{"views"},
		CountField:   "status",
		WriteRole:    auth.RoleAdmin,
	},
}

// Views returns every view in display order.
func Views() []View {
	out := make([]View, len(views))
	for i, v := range views {
		out[i] = v.clone()
	}
	return out
}

// LookupView finds a view by name, ignoring case.
func LookupView(name string) (View, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range views {
		if v.Name == name {
			return v.clone(), true
		}
	}
	return View{}, false
}

// ViewForCollection returns the view that guards collection.
func ViewForCollection(collection string) (View, bool) {
	for _, v := range views {
		if v.Collection == collection {
			return v.clone(), true
		}
	}
	return View{}, false
}

// containsCriteria moves field filters on the view's free-text fields into
// c.Contains. The caller's maps are left untouched.
func (v View) containsCriteria(c filter.Criteria) filter.Criteria {
	var moved bool
	for _, f := range v.ContainsFields {
		if _, ok := c.FieldFilters[f]; ok {
			moved = true
			break
		}
	}
	if !moved {
		return c
	}
	fields := make(map[string]any, len(c.FieldFilters))
	contains := make(map[string]string, len(c.Contains)+len(v.ContainsFields))
	maps.Copy(contains, c.Contains)
	for f, want := range c.FieldFilters {
		if !slices.Contains(v.ContainsFields, f) {
			fields[f] = want
			continue
		}
		if filter.Unconstrained(want) {
			continue
		}
		contains[f] = fmt.Sprint(want)
	}
	c.FieldFilters = fields
	c.Contains = contains
	return c
}

func (v View) clone() View {
	v.SearchFields = slices.Clone(v.SearchFields)
	v.FilterFields = slices.Clone(v.FilterFields)
	v.RangeFields = slices.Clone(v.RangeFields)
	v.ContainsFields = slices.Clone(v.ContainsFields)
	return v
}
