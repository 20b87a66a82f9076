// Package aggregate derives dashboard, analytics and trend figures from
// tenant-scoped orders and expenses. Every function is pure.
package aggregate

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const monthKeyLayout = "Jan 2006"

// BucketOrder controls how monthly buckets are emitted.
type BucketOrder int

const (
	// Chronological sorts buckets by calendar month, oldest first.
	Chronological BucketOrder = iota
	// Insertion keeps buckets in the order their first record was seen,
	// orders before expenses.
	Insertion
)

type Item struct {
	Name       string
	Quantity   int
	TotalPrice decimal.Decimal
}

type Order struct {
	CustomerName string
	TotalAmount  decimal.Decimal
	IsCompleted  bool
	CreatedAt    time.Time
	Items        []Item
}

type Expense struct {
	Description string
	Amount      decimal.Decimal
	Category    string
	Date        time.Time
}

type MonthBucket struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`

	start time.Time
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type ProductStat struct {
	Name     string          `json:"name"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int             `json:"quantity"`
}

type ActivityType string

const (
	ActivityOrder   ActivityType = "order"
	ActivityExpense ActivityType = "expense"
)

type Activity struct {
	Type   ActivityType    `json:"type"`
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// TotalRevenue sums order totals. With completedOnly, open orders are skipped.
func TotalRevenue(orders []Order, completedOnly bool) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if completedOnly && !o.IsCompleted {
			continue
		}
		total = total.Add(o.TotalAmount)
	}
	return total
}

func TotalExpenses(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

func AverageOrderValue(revenue decimal.Decimal, orderCount int) decimal.Decimal {
	if orderCount <= 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(int64(orderCount)))
}

// CurrentFunding is a derived balance and is never persisted.
func CurrentFunding(base, revenue, expenses decimal.Decimal) decimal.Decimal {
	return base.Add(revenue).Sub(expenses)
}

func PendingOrders(orders []Order) int {
	n := 0
	for _, o := range orders {
		if !o.IsCompleted {
			n++
		}
	}
	return n
}

// MonthlyRollup buckets order revenue by creation month and expenses by
// expense date. Every order counts toward revenue regardless of completion.
func MonthlyRollup(orders []Order, expenses []Expense, order BucketOrder) []MonthBucket {
	buckets := make([]MonthBucket, 0)
	index := make(map[string]int)

	bucket := func(t time.Time) *MonthBucket {
		t = t.UTC()
		key := t.Format(monthKeyLayout)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, MonthBucket{
				Month:    key,
				Revenue:  decimal.Zero,
				Expenses: decimal.Zero,
				start:    time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC),
			})
		}
		return &buckets[i]
	}

	for _, o := range orders {
		b := bucket(o.CreatedAt)
		b.Revenue = b.Revenue.Add(o.TotalAmount)
	}
	for _, e := range expenses {
		b := bucket(e.Date)
		b.Expenses = b.Expenses.Add(e.Amount)
	}

	if order == Chronological {
		slices.SortStableFunc(buckets, func(a, b MonthBucket) int {
			return a.start.Compare(b.start)
		})
	}
	return buckets
}

// CategoryRollup sums expense amounts per category in first-seen order.
func CategoryRollup(expenses []Expense) []CategoryTotal {
	out := make([]CategoryTotal, 0)
	index := make(map[string]int)
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

// TopProducts ranks order items by summed revenue, highest first, and keeps n.
// Ties keep first-seen order.
func TopProducts(orders []Order, n int) []ProductStat {
	stats := make([]ProductStat, 0)
	index := make(map[string]int)
	for _, o := range orders {
		for _, item := range o.Items {
			i, ok := index[item.Name]
			if !ok {
				i = len(stats)
				index[item.Name] = i
				stats = append(stats, ProductStat{Name: item.Name, Revenue: decimal.Zero})
			}
			stats[i].Revenue = stats[i].Revenue.Add(item.TotalPrice)
			stats[i].Quantity += item.Quantity
		}
	}

	slices.SortStableFunc(stats, func(a, b ProductStat) int {
		return b.Revenue.Cmp(a.Revenue)
	})
	if n >= 0 && len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

// CalculateTrend returns the percentage change from previous to current.
// A zero previous value always yields 100.
func CalculateTrend(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 100
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// RecentActivity merges orders and expenses newest first and keeps n entries.
func RecentActivity(orders []Order, expenses []Expense, n int) []Activity {
	out := make([]Activity, 0, len(orders)+len(expenses))
	for _, o := range orders {
		out = append(out, Activity{
			Type:   ActivityOrder,
			Title:  "New order from " + o.CustomerName,
			Amount: o.TotalAmount,
			Date:   o.CreatedAt,
		})
	}
	for _, e := range expenses {
		out = append(out, Activity{
			Type:   ActivityExpense,
			Title:  e.Description,
			Amount: e.Amount,
			Date:   e.Date,
		})
	}

	slices.SortStableFunc(out, func(a, b Activity) int {
		return b.Date.Compare(a.Date)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DistinctCustomers counts unique customer names.
func DistinctCustomers(orders []Order) int {
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		seen[o.CustomerName] = struct{}{}
	}
	return len(seen)
}
