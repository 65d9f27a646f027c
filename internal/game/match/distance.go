package match

// Levenshtein returns the edit distance between the normalized forms of a and b.
// Runs in O(len(a)*len(b)) time with a single row of memory.
func Levenshtein(a, b string) int {
	ra := []rune(Normalize(a))
	rb := []rune(Normalize(b))
	m, n := len(ra), len(rb)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	dp := make([]int, n+1)
	for j := 0; j <= n; j++ {
		dp[j] = j
	}
	for i := 1; i <= m; i++ {
		prev := i - 1 // dp[i-1][j-1]
		dp[0] = i
		for j := 1; j <= n; j++ {
			tmp := dp[j]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			dp[j] = minInt(dp[j]+1, dp[j-1]+1, prev+cost)
			prev = tmp
		}
	}
	return dp[n]
}

// JaroWinkler returns the Jaro-Winkler similarity (0..1) of the normalized
// forms of a and b, with the standard prefix bonus for up to four shared
// leading characters.
func JaroWinkler(a, b string) float64 {
	ra := []rune(Normalize(a))
	rb := []rune(Normalize(b))
	if string(ra) == string(rb) {
		return 1
	}
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	window := maxInt(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}
	aMatch := make([]bool, la)
	bMatch := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		start := maxInt(0, i-window)
		end := minInt(i+window+1, lb)
		for j := start; j < end; j++ {
			if bMatch[j] || ra[i] != rb[j] {
				continue
			}
			aMatch[i] = true
			bMatch[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < la; i++ {
		if !aMatch[i] {
			continue
		}
		for !bMatch[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}
	t := float64(transpositions) / 2

	fm := float64(matches)
	sim := (fm/float64(la) + fm/float64(lb) + (fm-t)/fm) / 3

	// Winkler prefix boost
	prefix := 0
	for prefix < 4 && prefix < la && prefix < lb && ra[prefix] == rb[prefix] {
		prefix++
	}
	return sim + float64(prefix)*0.1*(1-sim)
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
