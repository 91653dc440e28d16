package content

// Dedupe concatenates the items of all succeeded results and drops repeats.
// The first occurrence of a dedup key wins, so the order of results (the
// configured source priority order) decides which duplicate is canonical.
// Items without a URL and without a usable title are dropped as malformed.
func Dedupe(results []FetchResult) []Item {
	var out []Item
	seen := make(map[string]struct{})
	for _, res := range results {
		if !res.Succeeded {
			continue
		}
		for _, it := range res.Items {
			key := it.DedupKey()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, it)
		}
	}
	return out
}

// DedupeItems applies the same first-wins policy to an already-flat item
// list. The merge service uses it after prepending local-database items so
// that local content wins collisions against externally fetched duplicates.
func DedupeItems(items []Item) []Item {
	var out []Item
	seen := make(map[string]struct{})
	for _, it := range items {
		key := it.DedupKey()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
