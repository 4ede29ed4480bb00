package handlers

import (
	"github.com/tourdesk/backoffice/internal/domain"
)

type priceTablePayload struct {
	Adult  int64 `json:"adult"`
	Child  int64 `json:"child"`
	Infant int64 `json:"infant"`
	Senior int64 `json:"senior"`
}

type itineraryDayPayload struct {
	Day           int      `json:"day"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Attractions   []string `json:"attractions,omitempty"`
	Activities    []string `json:"activities,omitempty"`
	Meals         []string `json:"meals,omitempty"`
	Accommodation string   `json:"accommodation,omitempty"`
}

type policiesPayload struct {
	Booking      string `json:"booking,omitempty"`
	Cancellation string `json:"cancellation,omitempty"`
	Rescheduling string `json:"rescheduling,omitempty"`
	Refund       string `json:"refund,omitempty"`
}

type supplierPayload struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

type suppliersPayload struct {
	Restaurants []supplierPayload `json:"restaurants,omitempty"`
	Hotels      []supplierPayload `json:"hotels,omitempty"`
	Transport   []supplierPayload `json:"transport,omitempty"`
	Attractions []supplierPayload `json:"attractions,omitempty"`
}

func (p *priceTablePayload) toDomain() *domain.PriceTable {
	if p == nil {
		return nil
	}
	return &domain.PriceTable{Adult: p.Adult, Child: p.Child, Infant: p.Infant, Senior: p.Senior}
}

func priceTableFromDomain(t *domain.PriceTable) *priceTablePayload {
	if t == nil {
		return nil
	}
	return &priceTablePayload{Adult: t.Adult, Child: t.Child, Infant: t.Infant, Senior: t.Senior}
}

func itineraryToDomain(days []itineraryDayPayload) []domain.ItineraryDay {
	if len(days) == 0 {
		return nil
	}
	out := make([]domain.ItineraryDay, 0, len(days))
	for _, d := range days {
		out = append(out, domain.ItineraryDay{
			Day:           d.Day,
			Title:         d.Title,
			Description:   d.Description,
			Attractions:   d.Attractions,
			Activities:    d.Activities,
			Meals:         d.Meals,
			Accommodation: d.Accommodation,
		})
	}
	return out
}

func itineraryFromDomain(days []domain.ItineraryDay) []itineraryDayPayload {
	out := make([]itineraryDayPayload, 0, len(days))
	for _, d := range days {
		out = append(out, itineraryDayPayload{
			Day:           d.Day,
			Title:         d.Title,
			Description:   d.Description,
			Attractions:   d.Attractions,
			Activities:    d.Activities,
			Meals:         d.Meals,
			Accommodation: d.Accommodation,
		})
	}
	return out
}

func suppliersToDomain(list []supplierPayload) []domain.Supplier {
	if len(list) == 0 {
		return nil
	}
	out := make([]domain.Supplier, 0, len(list))
	for _, s := range list {
		out = append(out, domain.Supplier{Name: s.Name, Contact: s.Contact})
	}
	return out
}

func suppliersFromDomain(list []domain.Supplier) []supplierPayload {
	if len(list) == 0 {
		return nil
	}
	out := make([]supplierPayload, 0, len(list))
	for _, s := range list {
		out = append(out, supplierPayload{Name: s.Name, Contact: s.Contact})
	}
	return out
}

func (p suppliersPayload) toDomain() domain.TourSuppliers {
	return domain.TourSuppliers{
		Restaurants: suppliersToDomain(p.Restaurants),
		Hotels:      suppliersToDomain(p.Hotels),
		Transport:   suppliersToDomain(p.Transport),
		Attractions: suppliersToDomain(p.Attractions),
	}
}

func suppliersPayloadFromDomain(s domain.TourSuppliers) suppliersPayload {
	return suppliersPayload{
		Restaurants: suppliersFromDomain(s.Restaurants),
		Hotels:      suppliersFromDomain(s.Hotels),
		Transport:   suppliersFromDomain(s.Transport),
		Attractions: suppliersFromDomain(s.Attractions),
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type pageResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

func newPageResponse[S any, T any](page domain.Page[S], convert func(S) T) pageResponse[T] {
	items := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return pageResponse[T]{Items: items, NextPageToken: page.NextPageToken}
}
