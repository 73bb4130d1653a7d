package service

import (
	"strings"
	"time"

	"dario/internal/model"
)

// Match reason constants
const (
	ReasonPriceMatch    = "Price within budget"
	ReasonLocationMatch = "Location match"
	ReasonCapacityMatch = "Fits your group"
	ReasonElevatorMatch = "Elevator as requested"
	ReasonNoElevator    = "No elevator, as requested"
	ReasonNewlyListed   = "Newly listed"
	ReasonWellRated     = "Well rated"
	ReasonGeneralMatch  = "General match"
)

const (
	newlyListedWindow = 7 * 24 * time.Hour
	wellRatedMin      = 4.0
)

// Annotate attaches human readable match reasons to each listing. The order of
// listings is preserved: search results are always newest first.
func Annotate(listings []model.Listing, criteria model.SearchCriteria, now time.Time) []model.ListingResult {
	results := make([]model.ListingResult, 0, len(listings))
	for _, listing := range listings {
		results = append(results, model.ListingResult{
			Listing:        listing,
			MatchedReasons: matchedReasons(listing, criteria, now),
		})
	}
	return results
}

func matchedReasons(listing model.Listing, criteria model.SearchCriteria, now time.Time) []string {
	reasons := []string{}

	if criteria.MinPrice != nil || criteria.MaxPrice != nil {
		reasons = append(reasons, ReasonPriceMatch)
	}
	if criteria.Address != nil && strings.TrimSpace(*criteria.Address) != "" {
		reasons = append(reasons, ReasonLocationMatch)
	}
	if criteria.MinCapacity != nil {
		reasons = append(reasons, ReasonCapacityMatch)
	}
	if criteria.HasElevator != nil && listing.Elevator == *criteria.HasElevator {
		if listing.Elevator {
			reasons = append(reasons, ReasonElevatorMatch)
		} else {
			reasons = append(reasons, ReasonNoElevator)
		}
	}

	if !listing.CreatedAt.IsZero() && now.Sub(listing.CreatedAt) < newlyListedWindow {
		reasons = append(reasons, ReasonNewlyListed)
	}
	if listing.AverageRating >= wellRatedMin {
		reasons = append(reasons, ReasonWellRated)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}
	return reasons
}
