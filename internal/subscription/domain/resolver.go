package domain

import (
	"sort"
	"time"

	customerdomain "github.com/memberline/memberline/internal/customer/domain"
)

// ResolveMemberState derives a customer's access state from their
// subscription history at the given instant. First match wins:
//
//  1. soft-deleted customer          -> DELETED
//  2. no subscription rows           -> NO_SUBSCRIPTION
//  3. current subscription cancelled -> CANCELLED
//  4. end date passed or stored
//     status says EXPIRED            -> EXPIRED
//  5. otherwise                      -> ACTIVE
//
// The current subscription is the row with the latest CreatedAt (ties
// broken by ID). The end date overrides a stale stored ACTIVE status.
func ResolveMemberState(customer customerdomain.Customer, subscriptions []Subscription, now time.Time) MemberState {
	if customer.Deleted() {
		return StateDeleted
	}
	if len(subscriptions) == 0 {
		return StateNoSubscription
	}

	current := CurrentSubscription(subscriptions)
	if current.Cancelled() {
		return StateCancelled
	}
	if current.EndDate.Before(now) || current.Status == StatusExpired {
		return StateExpired
	}
	return StateActive
}

// CurrentSubscription picks the row with the latest CreatedAt, breaking
// ties by the larger ID.
func CurrentSubscription(subscriptions []Subscription) Subscription {
	current := subscriptions[0]
	for _, sub := range subscriptions[1:] {
		if sub.CreatedAt.After(current.CreatedAt) ||
			(sub.CreatedAt.Equal(current.CreatedAt) && sub.ID > current.ID) {
			current = sub
		}
	}
	return current
}

// DedupeLatestPerCustomer collapses rows to at most one per customer,
// keeping the row with the latest CreatedAt, and re-sorts the survivors
// by EndDate ascending so the soonest-expiring come first.
func DedupeLatestPerCustomer(rows []ExpiringMembership) []ExpiringMembership {
	latest := make(map[int64]ExpiringMembership, len(rows))
	order := make([]int64, 0, len(rows))
	for _, row := range rows {
		key := row.Customer.ID.Int64()
		prev, seen := latest[key]
		if !seen {
			latest[key] = row
			order = append(order, key)
			continue
		}
		if row.Subscription.CreatedAt.After(prev.Subscription.CreatedAt) ||
			(row.Subscription.CreatedAt.Equal(prev.Subscription.CreatedAt) && row.Subscription.ID > prev.Subscription.ID) {
			latest[key] = row
		}
	}

	out := make([]ExpiringMembership, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Subscription.EndDate.Before(out[j].Subscription.EndDate)
	})
	return out
}
