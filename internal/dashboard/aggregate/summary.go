package aggregate

import "github.com/shopspring/decimal"

// Options tunes the summaries. Zero limits fall back to the defaults.
type Options struct {
	BucketOrder   BucketOrder
	ActivityLimit int
	TopProducts   int
	BaseFunding   decimal.Decimal
}

const (
	DefaultActivityLimit = 10
	DefaultTopProducts   = 5
)

func (o Options) activityLimit() int {
	if o.ActivityLimit <= 0 {
		return DefaultActivityLimit
	}
	return o.ActivityLimit
}

func (o Options) topProducts() int {
	if o.TopProducts <= 0 {
		return DefaultTopProducts
	}
	return o.TopProducts
}

// DashboardMetrics is the headline block. CurrentFunding is nil when the
// caller may not see the balance.
type DashboardMetrics struct {
	CurrentFunding *decimal.Decimal `json:"currentFunding,omitempty"`
	TotalRevenue   decimal.Decimal  `json:"totalRevenue"`
	TotalExpenses  decimal.Decimal  `json:"totalExpenses"`
	TotalOrders    int              `json:"totalOrders"`
	PendingOrders  int              `json:"pendingOrders"`
}

func (m *DashboardMetrics) HideFunding() {
	m.CurrentFunding = nil
}

type DashboardSummary struct {
	Metrics            DashboardMetrics `json:"metrics"`
	RevenueByMonth     []MonthBucket    `json:"revenueByMonth"`
	ExpensesByCategory []CategoryTotal  `json:"expensesByCategory"`
	RecentActivity     []Activity       `json:"recentActivity"`
}

type AnalyticsSummary struct {
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	TotalExpenses      decimal.Decimal `json:"totalExpenses"`
	TotalOrders        int             `json:"totalOrders"`
	AverageOrderValue  decimal.Decimal `json:"averageOrderValue"`
	RevenueByMonth     []MonthBucket   `json:"revenueByMonth"`
	ExpensesByCategory []CategoryTotal `json:"expensesByCategory"`
	TopProducts        []ProductStat   `json:"topProducts"`
}

type TrendSummary struct {
	Revenue   float64 `json:"revenue"`
	Orders    float64 `json:"orders"`
	Customers float64 `json:"customers"`
}

// Dashboard summarizes the whole tenant history. Revenue counts completed
// orders only; the monthly buckets count every order.
func Dashboard(orders []Order, expenses []Expense, opts Options) DashboardSummary {
	revenue := TotalRevenue(orders, true)
	spent := TotalExpenses(expenses)
	funding := CurrentFunding(opts.BaseFunding, revenue, spent)

	return DashboardSummary{
		Metrics: DashboardMetrics{
			CurrentFunding: &funding,
			TotalRevenue:   revenue,
			TotalExpenses:  spent,
			TotalOrders:    len(orders),
			PendingOrders:  PendingOrders(orders),
		},
		RevenueByMonth:     MonthlyRollup(orders, expenses, opts.BucketOrder),
		ExpensesByCategory: CategoryRollup(expenses),
		RecentActivity:     RecentActivity(orders, expenses, opts.activityLimit()),
	}
}

// Analytics summarizes a date range. Revenue counts every order in range.
func Analytics(orders []Order, expenses []Expense, opts Options) AnalyticsSummary {
	revenue := TotalRevenue(orders, false)
	return AnalyticsSummary{
		TotalRevenue:       revenue,
		TotalExpenses:      TotalExpenses(expenses),
		TotalOrders:        len(orders),
		AverageOrderValue:  AverageOrderValue(revenue, len(orders)),
		RevenueByMonth:     MonthlyRollup(orders, expenses, opts.BucketOrder),
		ExpensesByCategory: CategoryRollup(expenses),
		TopProducts:        TopProducts(orders, opts.topProducts()),
	}
}

// Trends compares the current window against the previous one for completed
// revenue, order count and distinct customers.
func Trends(current, previous []Order) TrendSummary {
	return TrendSummary{
		Revenue: CalculateTrend(TotalRevenue(current, true), TotalRevenue(previous, true)),
		Orders: CalculateTrend(
			decimal.NewFromInt(int64(len(current))),
			decimal.NewFromInt(int64(len(previous))),
		),
		Customers: CalculateTrend(
			decimal.NewFromInt(int64(DistinctCustomers(current))),
			decimal.NewFromInt(int64(DistinctCustomers(previous))),
		),
	}
}
