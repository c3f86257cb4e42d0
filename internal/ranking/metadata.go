package ranking

import (
	"strings"

	"github.com/omoide-dev/omoide/internal/models"
	"github.com/omoide-dev/omoide/internal/query"
	"github.com/omoide-dev/omoide/pkg/utils"
)

// MatchScore computes a soft match score in [0,1] between query attributes and
// image metadata: the weighted mean over the attributes present in the query.
// Attributes absent from the query are skipped from both numerator and
// denominator; when nothing is present the score is 0.
func MatchScore(attrs *query.Attributes, meta *models.ImageMetadata, weights *Weights) float64 {
	if attrs == nil || meta == nil {
		return 0
	}
	if weights == nil {
		weights = DefaultWeights()
	}

	var total, weight float64

	if len(attrs.Objects) > 0 {
		total += matchObjects(attrs.Objects, meta.Objects) * weights.Objects
		weight += weights.Objects
	}
	if attrs.Action != "" {
		total += query.ActionSimilarity(attrs.Action, meta.Action) * weights.Action
		weight += weights.Action
	}
	if attrs.Time != "" {
		total += matchTime(attrs.Time, meta.Time) * weights.Time
		weight += weights.Time
	}
	if attrs.Scene != "" {
		total += matchExactOrZero(attrs.Scene, meta.Scene) * weights.Scene
		weight += weights.Scene
	}
	if attrs.Weather != "" {
		total += matchExactOrZero(attrs.Weather, meta.Weather) * weights.Weather
		weight += weights.Weather
	}
	if attrs.Emotion != "" {
		total += matchExactOrZero(attrs.Emotion, meta.Emotion) * weights.Emotion
		weight += weights.Emotion
	}

	if weight == 0 {
		return 0
	}
	return utils.Clamp(total/weight, 0, 1)
}

// matchObjects scores object lists with hierarchy awareness, taking the best
// score over all query x image pairs:
//
//	1.0 exact; 0.9 image term is the more specific member of the query's
//	category; 0.8 query term is the more specific member of the image's
//	category; 0.6 both reduce to the same top-level category; else 0.
func matchObjects(queryObjects, imageObjects []string) float64 {
	if len(queryObjects) == 0 || len(imageObjects) == 0 {
		return 0
	}

	best := 0.0
	for _, q := range queryObjects {
		q = strings.ToLower(strings.TrimSpace(q))
		qh := query.ObjectHierarchy(q)
		for _, img := range imageObjects {
			img = strings.ToLower(strings.TrimSpace(img))
			ih := query.ObjectHierarchy(img)

			// Order matters: two specific members of the same category
			// (man vs woman) score 0.8, not 0.9.
			switch {
			case q == img:
				best = max(best, 1.0)
			case len(qh) > 1 && inHierarchy(ih, qh[1]):
				best = max(best, 0.8)
			case len(ih) > 1 && inHierarchy(qh, ih[1]):
				best = max(best, 0.9)
			case qh[len(qh)-1] == ih[len(ih)-1]:
				best = max(best, 0.6)
			}
		}
	}
	return best
}

func inHierarchy(hierarchy []string, term string) bool {
	for _, h := range hierarchy {
		if h == term {
			return true
		}
	}
	return false
}

// nightVariants and dayVariants are the coarse time buckets used for fuzzy
// time matching (0.9 within the same bucket).
var (
	nightVariants = []string{"night", "nighttime", "dark", "evening", "midnight"}
	dayVariants   = []string{"day", "daytime", "afternoon", "bright", "midday"}
)

func matchTime(queryTime, imageTime string) float64 {
	if imageTime == "" {
		return 0
	}
	q := strings.ToLower(queryTime)
	i := strings.ToLower(imageTime)
	if q == i {
		return 1.0
	}
	if inBucket(q, nightVariants) && inBucket(i, nightVariants) {
		return 0.9
	}
	if inBucket(q, dayVariants) && inBucket(i, dayVariants) {
		return 0.9
	}
	return 0
}

func inBucket(term string, bucket []string) bool {
	for _, b := range bucket {
		if term == b {
			return true
		}
	}
	return false
}

func matchExactOrZero(queryVal, imageVal string) float64 {
	if imageVal == "" {
		return 0
	}
	if strings.EqualFold(queryVal, imageVal) {
		return 1.0
	}
	return 0
}
