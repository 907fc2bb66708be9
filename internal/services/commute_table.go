package services

import "commute-forecast/internal/domain"

// BuildCommuteTable creates one pending record per grid entry, in grid order.
func BuildCommuteTable(route domain.Route, grid []domain.GridEntry) *domain.CommuteTable {
	records := make([]domain.CommuteRecord, 0, len(grid))
	for _, e := range grid {
		records = append(records, domain.CommuteRecord{GridEntry: e})
	}

	return &domain.CommuteTable{Route: route, Records: records}
}
