package query

import (
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// listAll drains a paged listing. Stores cap a single page at
// shared.MaxListLimit, so projections that aggregate over a whole center
// must keep fetching until the store runs out of rows; stopping after one
// page silently undercounts large tenants.
func listAll[T any](list func(shared.ListOptions) ([]T, error)) ([]T, error) {
	var all []T
	opts := shared.ListOptions{Limit: shared.MaxListLimit}
	for {
		page, err := list(opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < opts.Limit {
			return all, nil
		}
		opts.Offset += opts.Limit
	}
}
