package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return testNow.AddDate(0, 0, offset)
}

func liveCustomer() customerdomain.Customer {
	return customerdomain.Customer{ID: snowflake.ID(1), IsActive: true}
}

func deletedCustomer() customerdomain.Customer {
	c := liveCustomer()
	c.DeletedAt = gorm.DeletedAt{Time: day(-30), Valid: true}
	return c
}

func sub(id int64, created, end time.Time, status string, cancelledAt *time.Time) Subscription {
	return Subscription{
		ID:          snowflake.ID(id),
		CustomerID:  snowflake.ID(1),
		Status:      status,
		StartDate:   created,
		EndDate:     end,
		CancelledAt: cancelledAt,
		CreatedAt:   created,
	}
}

func TestResolveMemberState(t *testing.T) {
	cancelled := day(-2)

	tests := []struct {
		name     string
		customer customerdomain.Customer
		subs     []Subscription
		want     MemberState
	}{
		{
			name:     "deleted customer wins over active subscription",
			customer: deletedCustomer(),
			subs:     []Subscription{sub(1, day(-10), day(20), StatusActive, nil)},
			want:     StateDeleted,
		},
		{
			name:     "deleted customer with no subscriptions",
			customer: deletedCustomer(),
			subs:     nil,
			want:     StateDeleted,
		},
		{
			name:     "no subscription rows",
			customer: liveCustomer(),
			subs:     nil,
			want:     StateNoSubscription,
		},
		{
			name:     "cancelled with future end date is cancelled not active",
			customer: liveCustomer(),
			subs:     []Subscription{sub(1, day(-10), day(20), StatusCancelled, &cancelled)},
			want:     StateCancelled,
		},
		{
			name:     "cancelled_at set but stored status still active",
			customer: liveCustomer(),
			subs:     []Subscription{sub(1, day(-10), day(20), StatusActive, &cancelled)},
			want:     StateCancelled,
		},
		{
			name:     "stale active status past end date is expired",
			customer: liveCustomer(),
			subs:     []Subscription{sub(1, day(-40), day(-5), StatusActive, nil)},
			want:     StateExpired,
		},
		{
			name:     "stored expired status with future end date",
			customer: liveCustomer(),
			subs:     []Subscription{sub(1, day(-10), day(20), StatusExpired, nil)},
			want:     StateExpired,
		},
		{
			name:     "active subscription",
			customer: liveCustomer(),
			subs:     []Subscription{sub(1, day(-10), day(20), StatusActive, nil)},
			want:     StateActive,
		},
		{
			name:     "renewal row decides over older expired row",
			customer: liveCustomer(),
			subs: []Subscription{
				sub(1, day(-60), day(-30), StatusExpired, nil),
				sub(2, day(-10), day(20), StatusActive, nil),
			},
			want: StateActive,
		},
		{
			name:     "latest row expired even though older row ends later",
			customer: liveCustomer(),
			subs: []Subscription{
				sub(1, day(-60), day(30), StatusActive, nil),
				sub(2, day(-10), day(-1), StatusActive, nil),
			},
			want: StateExpired,
		},
		{
			name:     "end date equal to now is not yet expired",
			customer: liveCustomer(),
			subs:     []Subscription{sub(1, day(-10), testNow, StatusActive, nil)},
			want:     StateActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMemberState(tt.customer, tt.subs, testNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentSubscription(t *testing.T) {
	t.Run("latest created_at wins regardless of order", func(t *testing.T) {
		subs := []Subscription{
			sub(2, day(-10), day(20), StatusActive, nil),
			sub(1, day(-60), day(-30), StatusExpired, nil),
		}
		assert.Equal(t, snowflake.ID(2), CurrentSubscription(subs).ID)

		subs[0], subs[1] = subs[1], subs[0]
		assert.Equal(t, snowflake.ID(2), CurrentSubscription(subs).ID)
	})

	t.Run("created_at tie broken by larger id", func(t *testing.T) {
		subs := []Subscription{
			sub(7, day(-10), day(20), StatusActive, nil),
			sub(3, day(-10), day(25), StatusActive, nil),
		}
		assert.Equal(t, snowflake.ID(7), CurrentSubscription(subs).ID)
	})
}

func TestDedupeLatestPerCustomer(t *testing.T) {
	mk := func(customerID, subID int64, created, end time.Time) ExpiringMembership {
		return ExpiringMembership{
			Customer: customerdomain.Customer{ID: snowflake.ID(customerID), IsActive: true},
			Subscription: Subscription{
				ID:         snowflake.ID(subID),
				CustomerID: snowflake.ID(customerID),
				Status:     StatusActive,
				EndDate:    end,
				CreatedAt:  created,
			},
		}
	}

	t.Run("at most one row per customer, latest created_at kept", func(t *testing.T) {
		rows := []ExpiringMembership{
			mk(1, 10, day(-60), day(2)),
			mk(1, 11, day(-10), day(6)),
			mk(2, 20, day(-5), day(4)),
		}

		out := DedupeLatestPerCustomer(rows)
		assert.Len(t, out, 2)
		assert.Equal(t, snowflake.ID(20), out[0].Subscription.ID)
		assert.Equal(t, snowflake.ID(11), out[1].Subscription.ID)
	})

	t.Run("survivors ordered by end date ascending", func(t *testing.T) {
		rows := []ExpiringMembership{
			mk(1, 10, day(-1), day(7)),
			mk(2, 20, day(-1), day(1)),
			mk(3, 30, day(-1), day(3)),
		}

		out := DedupeLatestPerCustomer(rows)
		assert.Len(t, out, 3)
		assert.Equal(t, snowflake.ID(20), out[0].Subscription.ID)
		assert.Equal(t, snowflake.ID(30), out[1].Subscription.ID)
		assert.Equal(t, snowflake.ID(10), out[2].Subscription.ID)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, DedupeLatestPerCustomer(nil))
	})
}
