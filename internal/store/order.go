package store

import "strings"

// Order is one of the allow-listed sort orders for history queries.
type Order int

const (
	OrderScrapedAtDesc Order = iota
	OrderScrapedAtAsc
	OrderScrapedDateDesc
	OrderScrapedDateAsc
	OrderHeatValueDesc
	OrderHeatValueAsc
	OrderRankAsc
	OrderRankDesc
	OrderIDDesc
	OrderIDAsc
)

// DefaultOrder is used for anything not in the allow-list.
const DefaultOrder = OrderScrapedAtDesc

var orderNames = map[Order]string{
	OrderScrapedAtDesc:   "scraped_at DESC",
	OrderScrapedAtAsc:    "scraped_at ASC",
	OrderScrapedDateDesc: "scraped_date DESC",
	OrderScrapedDateAsc:  "scraped_date ASC",
	OrderHeatValueDesc:   "heat_value DESC",
	OrderHeatValueAsc:    "heat_value ASC",
	OrderRankAsc:         "rank ASC",
	OrderRankDesc:        "rank DESC",
	OrderIDDesc:          "id DESC",
	OrderIDAsc:           "id ASC",
}

// ParseOrder maps a caller supplied "field direction" string onto the
// allow-list. Case and extra whitespace are ignored; anything else falls back
// to DefaultOrder.
func ParseOrder(s string) Order {
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for o, name := range orderNames {
		if strings.ToLower(name) == norm {
			return o
		}
	}
	return DefaultOrder
}

// Orders lists every allowed order in declaration order.
func Orders() []Order {
	out := make([]Order, 0, len(orderNames))
	for o := OrderScrapedAtDesc; o <= OrderIDAsc; o++ {
		out = append(out, o)
	}
	return out
}

func (o Order) String() string {
	if name, ok := orderNames[o]; ok {
		return name
	}
	return orderNames[DefaultOrder]
}

// clause is the ORDER BY body. Only values from orderNames ever reach SQL.
func (o Order) clause() string {
	name, ok := orderNames[o]
	if !ok {
		name = orderNames[DefaultOrder]
	}
	if strings.HasPrefix(name, "id ") {
		return name
	}
	if strings.HasSuffix(name, "ASC") {
		return name + ", id ASC"
	}
	return name + ", id DESC"
}
