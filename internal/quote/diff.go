package quote

import (
	"sort"

	"github.com/noah-isme/backend-printquote/internal/pricing"
)

// DiffFields compares the client-editable fields of two quote states and
// returns the changed ones keyed by field name.
func DiffFields(before Quote, after Quote) map[string]FieldChange {
	changes := map[string]FieldChange{}
	if before.ClientName != after.ClientName {
		changes["clientName"] = FieldChange{From: before.ClientName, To: after.ClientName}
	}
	if before.ProjectName != after.ProjectName {
		changes["projectName"] = FieldChange{From: before.ProjectName, To: after.ProjectName}
	}
	if before.Quantity != after.Quantity {
		changes["quantity"] = FieldChange{From: before.Quantity, To: after.Quantity}
	}
	if before.InsertsCount != after.InsertsCount {
		changes["insertsCount"] = FieldChange{From: before.InsertsCount, To: after.InsertsCount}
	}
	if !before.DiscountPercentage.Equal(after.DiscountPercentage) {
		changes["discountPercentage"] = FieldChange{
			From: before.DiscountPercentage.String(),
			To:   after.DiscountPercentage.String(),
		}
	}
	return changes
}

// DiffLines reports which line identities appeared and disappeared between
// two line sets, sorted so identical edits always produce identical
// payloads. Rate card lines are identified by card ID, manual lines by
// their description.
func DiffLines(before, after []pricing.Line) (added, removed []string) {
	beforeSet := lineIdentities(before)
	afterSet := lineIdentities(after)
	for id := range afterSet {
		if !beforeSet[id] {
			added = append(added, id)
		}
	}
	for id := range beforeSet {
		if !afterSet[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func lineIdentities(lines []pricing.Line) map[string]bool {
	set := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.IsManualItem {
			set["manual:"+l.Description] = true
		} else {
			set[l.RateCardID] = true
		}
	}
	return set
}
