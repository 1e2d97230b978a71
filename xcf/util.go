package xcf

// Choose returns the number of ways to choose k items from n. Derived
// from github.com/limix/bgen /src/util/choose.c via bgen's own port.
func Choose(n, k int) int {
	if n == 3 && k == 1 {
		return 3
	} else if k == 1 {
		return n
	}

	ans := 1

	if k > n-k {
		k = n - k
	}

	for j := 1; j <= k; j++ {
		if n%j == 0 {
			ans *= n / j
		} else if ans%j == 0 {
			ans = ans / j * n
		} else {
			ans = (ans * n) / j
		}

		n--
	}

	return ans
}

// WhichSQLiteDriver reports which sqlx driver name the XcfIndex was
// built to use (build-tag selected between the cgo mattn/go-sqlite3
// driver and the pure-Go modernc.org/sqlite driver).
func WhichSQLiteDriver() string {
	return whichSQLiteDriver
}
