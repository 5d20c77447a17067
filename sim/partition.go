package sim

// Share returns the samples owned by part index out of parts:
//
//	total/parts, plus one for each of the total%parts lowest indices.
//
// Returns 0 for a negative total, parts < 1, or an index outside [0, parts).
func Share(total int64, parts, index int) int64 {
	if total <= 0 || parts < 1 || index < 0 || index >= parts {
		return 0
	}
	p := int64(parts)
	share := total / p
	if int64(index) < total%p {
		share++
	}
	return share
}

// Quotas returns every part's share. The result always sums to max(total, 0).
func Quotas(total int64, parts int) []int64 {
	if parts < 1 {
		return nil
	}
	quotas := make([]int64, parts)
	for i := range quotas {
		quotas[i] = Share(total, parts, i)
	}
	return quotas
}
