package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// Assignment is one room picked for a reservation, with upgrade audit
// data when the room belongs to a higher tier than requested.
type Assignment struct {
	RoomID          uint64
	RoomNumber      uint32
	RoomTypeID      uint64
	Upgraded        bool
	UpgradeReason   string
	UpgradeApprover string
	UpgradeFeeCents uint32
}

// parseFloors decodes a comma-separated floor preference list.  Invalid
// entries are skipped.
func parseFloors(s string) []uint8 {
	var floors []uint8
	for _, p := range strings.Split(s, ",") {
		if n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8); err == nil {
			floors = append(floors, uint8(n))
		}
	}
	return floors
}

// sortRooms orders candidate rooms deterministically: preferred floors
// first (in the order listed), then lowest room number, ties broken by
// floor ascending.  With no preference this is exactly the spec'd
// fallback ordering.
func sortRooms(rooms []model.Room, preferredFloors []uint8) {
	rank := make(map[uint8]int, len(preferredFloors))
	for i, f := range preferredFloors {
		rank[f] = i + 1
	}
	floorRank := func(f uint8) int {
		if r, ok := rank[f]; ok {
			return r
		}
		return len(preferredFloors) + 2
	}
	sort.Slice(rooms, func(i, j int) bool {
		ri, rj := floorRank(rooms[i].Floor), floorRank(rooms[j].Floor)
		if ri != rj {
			return ri < rj
		}
		if rooms[i].RoomNumber != rooms[j].RoomNumber {
			return rooms[i].RoomNumber < rooms[j].RoomNumber
		}
		return rooms[i].Floor < rooms[j].Floor
	})
}

// freeRooms filters candidates to active rooms of the wanted type with no
// conflicting stay for the request range.
func freeRooms(candidates []model.Room, existing []Stay, typeID uint64, req Request) []model.Room {
	var free []model.Room
	for _, r := range candidates {
		if !r.IsActive || r.RoomTypeID != typeID {
			continue
		}
		if IsRoomAvailable(existing, r.ID, req.CheckIn, req.CheckOut) {
			free = append(free, r)
		}
	}
	return free
}

// nextTier returns the room type one tier above the given one at the same
// hotel, or nil when the requested type is already the top of the ladder.
// When several types share the next tier the lowest id wins, keeping the
// search deterministic.
func nextTier(types []model.RoomType, current *model.RoomType) *model.RoomType {
	var best *model.RoomType
	for i := range types {
		t := &types[i]
		if t.HotelID != current.HotelID || t.Tier != current.Tier+1 {
			continue
		}
		if best == nil || t.ID < best.ID {
			best = t
		}
	}
	return best
}

// SelectRooms picks physical rooms for the request.  The requested type
// is searched first under the governing rule's criteria (or the default
// ordering when rule is nil).  When the requested type cannot supply
// every room and upgrades are permitted — by the rule or by the request
// itself — the shortfall is drawn from the next tier up, bounded by the
// rule's max-upgrades restriction.  Identical inputs always produce
// identical output.
func SelectRooms(rooms []model.Room, types []model.RoomType, existing []Stay, rules []model.AssignmentRule, req Request) ([]Assignment, error) {
	rule := SelectRule(rules, req)

	var preferredFloors []uint8
	if rule != nil && rule.PreferredFloors != nil {
		preferredFloors = parseFloors(*rule.PreferredFloors)
	}

	free := freeRooms(rooms, existing, req.RoomTypeID, req)
	sortRooms(free, preferredFloors)

	assignments := make([]Assignment, 0, req.RoomCount)
	for _, r := range free {
		if uint32(len(assignments)) == req.RoomCount {
			break
		}
		assignments = append(assignments, Assignment{
			RoomID:     r.ID,
			RoomNumber: r.RoomNumber,
			RoomTypeID: r.RoomTypeID,
		})
	}
	if uint32(len(assignments)) == req.RoomCount {
		return assignments, nil
	}

	// Shortfall: try the next tier when permitted.
	upgradeAllowed := req.AllowUpgrade || (rule != nil && rule.AllowUpgrade)
	if !upgradeAllowed {
		return nil, ErrNoRoomAvailable
	}

	var requested *model.RoomType
	for i := range types {
		if types[i].ID == req.RoomTypeID {
			requested = &types[i]
			break
		}
	}
	if requested == nil {
		return nil, ErrNoRoomAvailable
	}
	upper := nextTier(types, requested)
	if upper == nil {
		return nil, ErrNoRoomAvailable
	}

	needed := req.RoomCount - uint32(len(assignments))
	if rule != nil && rule.MaxUpgrades > 0 && needed > rule.MaxUpgrades {
		return nil, ErrNoRoomAvailable
	}

	reason := "availability"
	approver := "system"
	var fee uint32
	if rule != nil {
		if rule.UpgradeReason != "" {
			reason = rule.UpgradeReason
		}
		if rule.ApproverLevel != "" {
			approver = rule.ApproverLevel
		}
		fee = rule.UpgradeFeeCents
	}

	upgradable := freeRooms(rooms, existing, upper.ID, req)
	sortRooms(upgradable, preferredFloors)
	for _, r := range upgradable {
		if needed == 0 {
			break
		}
		assignments = append(assignments, Assignment{
			RoomID:          r.ID,
			RoomNumber:      r.RoomNumber,
			RoomTypeID:      r.RoomTypeID,
			Upgraded:        true,
			UpgradeReason:   reason,
			UpgradeApprover: approver,
			UpgradeFeeCents: fee,
		})
		needed--
	}
	if needed > 0 {
		return nil, ErrNoRoomAvailable
	}
	return assignments, nil
}
