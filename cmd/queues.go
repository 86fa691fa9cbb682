package cmd

import (
	"fmt"
	"sort"

	"grimm.is/shunt/internal/divert"
)

// RunQueues prints the queue numbers currently bound on the host and the
// next n that an allocation would hand out.
func RunQueues(n int) error {
	if n < 1 {
		return fmt.Errorf("queue count must be at least 1, got %d", n)
	}

	alloc := divert.NewAllocator()
	claimed := alloc.Claimed()

	nums := make([]uint16, 0, len(claimed))
	for qno := range claimed {
		nums = append(nums, qno)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

	if len(nums) == 0 {
		fmt.Println("No queues currently bound.")
	} else {
		fmt.Printf("Bound queues (%d):", len(nums))
		for _, qno := range nums {
			fmt.Printf(" %d", qno)
		}
		fmt.Println()
	}

	free := alloc.NextFree(n)
	if len(free) < n {
		return fmt.Errorf("queue number space exhausted: wanted %d, found %d free", n, len(free))
	}
	fmt.Printf("Next %d free:", n)
	for _, qno := range free {
		fmt.Printf(" %d", qno)
	}
	fmt.Println()
	return nil
}
