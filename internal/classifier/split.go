package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// Split partitions n sample indices into train and test sets. The test set
// holds ceil(testRatio*n) samples chosen by a permutation seeded with seed,
// so the same n, ratio and seed always give the same partition.
// Both index slices are returned in ascending order.
func Split(n int, testRatio float64, seed int64) (train, test []int) {
	if n <= 0 {
		return nil, nil
	}
	nTest := int(math.Ceil(testRatio*float64(n) - 1e-9))
	if nTest < 0 {
		nTest = 0
	}
	if nTest > n {
		nTest = n
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int{}, perm[:nTest]...)
	train = append([]int{}, perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test
}
