// Package repository provides concrete adapters for the coupon repository
// and customer eligibility abstractions: a PostgreSQL implementation for
// production and an in-memory implementation for tests and single-process
// hosts.
package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/promostack/coupon-engine/internal/coupon"
)

var (
	_ coupon.Repository         = (*MemoryCouponRepository)(nil)
	_ coupon.EligibilityService = (*MemoryEligibilityService)(nil)
)

// usageKey identifies one customer's usage of one coupon.
type usageKey struct {
	couponID   string
	customerID string
}

// MemoryCouponRepository is a thread-safe in-memory coupon.Repository.
type MemoryCouponRepository struct {
	mu       sync.RWMutex
	byID     map[string]*coupon.Coupon
	byCode   map[coupon.Code]*coupon.Coupon
	global   map[string]int
	customer map[usageKey]int
	redeemed map[coupon.Code]bool
}

// NewMemoryCouponRepository creates an empty in-memory repository.
func NewMemoryCouponRepository() *MemoryCouponRepository {
	return &MemoryCouponRepository{
		byID:     make(map[string]*coupon.Coupon),
		byCode:   make(map[coupon.Code]*coupon.Coupon),
		global:   make(map[string]int),
		customer: make(map[usageKey]int),
		redeemed: make(map[coupon.Code]bool),
	}
}

// Put stores or replaces a coupon.
func (r *MemoryCouponRepository) Put(c *coupon.Coupon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	r.byCode[c.Code] = c
}

// FindByCode looks up a coupon by its normalized code.
func (r *MemoryCouponRepository) FindByCode(_ context.Context, code coupon.Code) (*coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byCode[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

// FindByID looks up a coupon by its id.
func (r *MemoryCouponRepository) FindByID(_ context.Context, id string) (*coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

// ListActive returns every coupon whose active flag is set.
func (r *MemoryCouponRepository) ListActive(_ context.Context) ([]coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []coupon.Coupon
	for _, c := range r.byID {
		if c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

// GlobalUsageCount returns the total recorded uses of the coupon.
func (r *MemoryCouponRepository) GlobalUsageCount(_ context.Context, couponID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global[couponID], nil
}

// CustomerUsageCount returns one customer's recorded uses of the coupon.
func (r *MemoryCouponRepository) CustomerUsageCount(_ context.Context, couponID, customerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.customer[usageKey{couponID, customerID}], nil
}

// RecordUsage increments the global and per-customer counters and marks
// single-use codes as redeemed. Counter updates are atomic under the lock.
func (r *MemoryCouponRepository) RecordUsage(_ context.Context, couponID, customerID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global[couponID]++
	r.customer[usageKey{couponID, customerID}]++
	if c, ok := r.byID[couponID]; ok && c.SingleUse {
		r.redeemed[c.Code] = true
	}
	return nil
}

// IsUniqueCodeUsed reports whether a single-use code has been redeemed.
func (r *MemoryCouponRepository) IsUniqueCodeUsed(_ context.Context, code coupon.Code) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.redeemed[code], nil
}

// MemoryEligibilityService is an in-memory coupon.EligibilityService keyed
// by customer id.
type MemoryEligibilityService struct {
	mu     sync.RWMutex
	orders map[string]int      // customer id -> completed order count
	groups map[string][]string // customer id -> group names
}

// NewMemoryEligibilityService creates an empty eligibility service.
func NewMemoryEligibilityService() *MemoryEligibilityService {
	return &MemoryEligibilityService{
		orders: make(map[string]int),
		groups: make(map[string][]string),
	}
}

// SetOrderCount records how many completed orders a customer has.
func (s *MemoryEligibilityService) SetOrderCount(customerID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[customerID] = n
}

// SetGroups records a customer's group memberships.
func (s *MemoryEligibilityService) SetGroups(customerID string, groups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[customerID] = groups
}

// IsFirstOrder reports whether the customer has no completed orders yet.
func (s *MemoryEligibilityService) IsFirstOrder(_ context.Context, customerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[customerID] == 0, nil
}

// IsInAllowedGroups reports whether the customer belongs to any of the
// given groups. Group names compare case-insensitively.
func (s *MemoryEligibilityService) IsInAllowedGroups(_ context.Context, customerID string, groups []string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, member := range s.groups[customerID] {
		for _, g := range groups {
			if strings.EqualFold(member, g) {
				return true, nil
			}
		}
	}
	return false, nil
}
