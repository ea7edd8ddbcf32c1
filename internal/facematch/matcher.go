// Package facematch implements nearest-neighbor matching of a query face
// embedding against each user's stored embeddings under a cosine distance
// threshold. Matching is pure: callers load candidates from storage and
// record outcomes themselves.
package facematch

// Match is a successful recognition result.
type Match struct {
	UserID     int64
	Distance   float64
	Confidence float64 // (1 - distance) * 100
}

// BestMatch scans every candidate user's vectors and returns the user with
// the globally minimal cosine distance, or nil when no user comes within
// the threshold (or the candidate set is empty). Exact brute force,
// O(total vectors x dimension).
//
// Ties on distance break toward the lower user id so results do not depend
// on map iteration order.
func BestMatch(query []float32, candidates map[int64][][]float32, threshold float64) *Match {
	bestUser := int64(-1)
	bestDistance := 0.0
	found := false

	for userID, vectors := range candidates {
		for _, vec := range vectors {
			d := CosineDistance(query, vec)
			switch {
			case !found, d < bestDistance:
				bestUser = userID
				bestDistance = d
				found = true
			case d == bestDistance && userID < bestUser:
				bestUser = userID
			}
		}
	}

	if !found || bestDistance > threshold {
		return nil
	}
	return &Match{
		UserID:     bestUser,
		Distance:   bestDistance,
		Confidence: (1 - bestDistance) * 100,
	}
}
