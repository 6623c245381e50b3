// Package batch assigns feed indices to coordinated workers without any
// shared state: worker (batchSize, offset) owns exactly the indices i with
// i mod batchSize == offset.
package batch

import (
	"fmt"

	"github.com/reposift/reposift/internal/domain"
)

// Validate checks the partition parameters. Violations are configuration
// errors and abort a run before any work happens.
func Validate(batchSize, offset int) error {
	if batchSize < 1 {
		return domain.NewDomainError(domain.ErrCodeConfiguration,
			fmt.Sprintf("batch size must be at least 1, got %d", batchSize))
	}

	if offset < 0 || offset >= batchSize {
		return domain.NewDomainError(domain.ErrCodeConfiguration,
			fmt.Sprintf("offset must be in [0, %d), got %d", batchSize, offset))
	}

	return nil
}

// Assign returns the ascending indices in [0, total) owned by the worker
// with the given batch size and offset. Workers 0..batchSize-1 together
// cover every index exactly once.
func Assign(total, batchSize, offset int) ([]int, error) {
	if err := Validate(batchSize, offset); err != nil {
		return nil, err
	}

	if total < 0 {
		return nil, domain.NewDomainError(domain.ErrCodeConfiguration,
			fmt.Sprintf("total must be non-negative, got %d", total))
	}

	indices := make([]int, 0, total/batchSize+1)
	for i := offset; i < total; i += batchSize {
		indices = append(indices, i)
	}
	return indices, nil
}
