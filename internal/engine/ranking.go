/**
 * @description
 * Pure bid ranking and winner extraction for lane auctions.
 * No I/O: callers load bids, this package decides.
 *
 * @notes
 * - Ranking is by bid amount descending; ties break by earliest created_at
 *   (the first bid wins the tie), then by bid id for full determinism.
 */

package engine

import (
	"sort"

	"github.com/procurelane/backend/internal/models"
)

// RankBids returns the bids sorted by amount descending, ties broken by
// earliest created_at, then id. The input slice is not modified.
func RankBids(bids []models.AuctionBid) []models.AuctionBid {
	ranked := make([]models.AuctionBid, len(bids))
	copy(ranked, bids)

	sort.SliceStable(ranked, func(i, j int) bool {
		cmp := ranked[i].BidAmount.Cmp(ranked[j].BidAmount)
		if cmp != 0 {
			return cmp > 0
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ID < ranked[j].ID
	})

	return ranked
}

// AwardResult is the outcome of winner extraction on a closing auction
type AwardResult struct {
	// Winners in rank order, at most maxSlots entries
	Winners []models.AuctionBid
	// Outbid holds every ranked bid that did not win a slot
	Outbid []models.AuctionBid
}

// WinnerSupplierIDs returns the winning supplier ids in rank order
func (r *AwardResult) WinnerSupplierIDs() []string {
	ids := make([]string, 0, len(r.Winners))
	for _, b := range r.Winners {
		ids = append(ids, b.SupplierID)
	}
	return ids
}

// SelectWinners ranks the given bids and fills up to maxSlots winner slots.
// Zero bids yields an empty winner set, which is still a valid award.
func SelectWinners(bids []models.AuctionBid, maxSlots int) *AwardResult {
	if maxSlots < 0 {
		maxSlots = 0
	}

	ranked := RankBids(bids)
	cut := maxSlots
	if cut > len(ranked) {
		cut = len(ranked)
	}

	return &AwardResult{
		Winners: ranked[:cut],
		Outbid:  ranked[cut:],
	}
}
